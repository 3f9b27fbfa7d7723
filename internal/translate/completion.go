package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	ai "github.com/sashabaranov/go-openai"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrUnauthorized means the completion endpoint rejected the credential.
var ErrUnauthorized = errors.New("completion endpoint rejected credential")

// FallbackModels are tried after the request and configured models.
var FallbackModels = []string{"gpt-4.1-mini", "gpt-4o-mini"}

const instructions = `You translate law firm website articles from English to Latin-American Spanish.
Keep Markdown and HTML structure exactly as given. Do not translate URLs, code or proper names of people and firms.
Respond with JSON only, no commentary and no code fences, using exactly these keys:
{"title": "...", "excerpt": "...", "body": "...", "metaTitle": "...", "metaDescription": "..."}
metaTitle must equal title and metaDescription must equal excerpt.`

// Completion translates through an OpenAI compatible API. It tries the
// Responses endpoint for each candidate model and then Chat Completions.
type Completion struct {
	httpClient  *http.Client
	chat        *ai.Client
	baseURL     string
	key         string
	model       string
	temperature float64
	logger      *zap.Logger
}

func NewCompletion(httpClient *http.Client, baseURL, key, organization, model string, temperature float64, logger *zap.Logger) *Completion {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := ai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.OrgID = organization
	cfg.HTTPClient = httpClient

	return &Completion{
		httpClient:  httpClient,
		chat:        ai.NewClientWithConfig(cfg),
		baseURL:     cfg.BaseURL,
		key:         key,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Candidates returns the models to try, deduplicated, in order.
func (c *Completion) Candidates(requested string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range append([]string{requested, c.model}, FallbackModels...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Translate returns the raw model output for prompt. The error wraps
// ErrUnauthorized when the endpoint refused the key.
func (c *Completion) Translate(ctx context.Context, prompt, requestedModel string) (string, error) {
	candidates := c.Candidates(requestedModel)

	var errs error
	for _, model := range candidates {
		out, err := c.responses(ctx, model, prompt)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: %w", model, ErrEmpty)
		}
		if errors.Is(err, ErrUnauthorized) {
			return "", err
		}
		c.logger.Debug("responses endpoint failed", zap.String("model", model), zap.Error(err))
		errs = multierr.Append(errs, err)
	}

	out, err := c.chatCompletion(ctx, candidates[0], prompt)
	if err != nil {
		return "", multierr.Append(errs, err)
	}
	return out, nil
}

type responsesRequest struct {
	Model        string   `json:"model"`
	Instructions string   `json:"instructions"`
	Input        string   `json:"input"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r responsesResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

func (c *Completion) responses(ctx context.Context, model, prompt string) (string, error) {
	t := c.temperature
	payload := responsesRequest{Model: model, Instructions: instructions, Input: prompt, Temperature: &t}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%s: %w", model, err)
	}
	var parsed responsesResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("%s: %w", model, ErrUnauthorized)
	}
	if resp.StatusCode/100 != 2 {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("%s: status %d: %s", model, resp.StatusCode, upstreamMessage(msg, raw))
	}
	return parsed.text(), nil
}

func (c *Completion) chatCompletion(ctx context.Context, model, prompt string) (string, error) {
	req := ai.ChatCompletionRequest{
		Model: model,
		Messages: []ai.ChatCompletionMessage{
			{Role: ai.ChatMessageRoleSystem, Content: instructions},
			{Role: ai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    chatTemperature(c.temperature),
		ResponseFormat: &ai.ChatCompletionResponseFormat{Type: ai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil && rejectsResponseFormat(err) {
		c.logger.Debug("retrying chat completion without response_format", zap.String("model", model))
		req.ResponseFormat = nil
		resp, err = c.chat.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		if statusCode(err) == http.StatusUnauthorized {
			return "", fmt.Errorf("chat %s: %w: %v", model, ErrUnauthorized, err)
		}
		return "", fmt.Errorf("chat %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat %s: no choices", model)
	}
	out := resp.Choices[0].Message.Content
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("chat %s: %w", model, ErrEmpty)
	}
	return out, nil
}

// chatTemperature keeps a configured 0 from being dropped by omitempty.
func chatTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func statusCode(err error) int {
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *ai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func rejectsResponseFormat(err error) bool {
	if statusCode(err) != http.StatusBadRequest {
		return false
	}
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Param != nil && strings.Contains(*apiErr.Param, "response_format") {
			return true
		}
		return strings.Contains(apiErr.Message, "response_format")
	}
	return strings.Contains(err.Error(), "response_format")
}

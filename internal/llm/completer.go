package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/RichardoC/firmsite-copilot/internal/models"
)

// Options are per request overrides. Zero values fall back to the service
// defaults.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// Completer performs one chat completion round trip with tools.
type Completer interface {
	Complete(ctx context.Context, conversation []models.ChatMessage, tools []ToolSpec, opts Options) (models.AssistantTurn, error)
}

// OpenAICompleter talks to an OpenAI compatible chat completions endpoint.
type OpenAICompleter struct {
	llm *openai.LLM
}

func NewOpenAICompleter(baseURL, token, model, organization string, httpClient *http.Client) (*OpenAICompleter, error) {
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	}
	if organization != "" {
		opts = append(opts, openai.WithOrganization(organization))
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &OpenAICompleter{llm: llm}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, conversation []models.ChatMessage, tools []ToolSpec, opts Options) (models.AssistantTurn, error) {
	messages := make([]llms.MessageContent, 0, len(conversation))
	for _, m := range conversation {
		messages = append(messages, toMessageContent(m))
	}

	callOpts := []llms.CallOption{
		llms.WithTools(toLLMTools(tools)),
		llms.WithToolChoice("auto"),
	}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*opts.Temperature))
	}
	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(*opts.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return models.AssistantTurn{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return models.AssistantTurn{}, errors.New("empty completion response")
	}

	choice := resp.Choices[0]
	turn := models.AssistantTurn{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		turn.ToolCalls = append(turn.ToolCalls, models.ToolInvocation{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return turn, nil
}

func toMessageContent(m models.ChatMessage) llms.MessageContent {
	switch m.Role {
	case models.RoleSystem:
		return llms.TextParts(llms.ChatMessageTypeSystem, m.Content)
	case models.RoleAssistant:
		var parts []llms.ContentPart
		if m.Content != "" {
			parts = append(parts, llms.TextContent{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		if len(parts) == 0 {
			parts = append(parts, llms.TextContent{Text: ""})
		}
		return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
	case models.RoleTool:
		return llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: m.ToolCallID,
				Name:       m.Name,
				Content:    m.Content,
			}},
		}
	}
	return llms.TextParts(llms.ChatMessageTypeHuman, m.Content)
}

func toLLMTools(specs []ToolSpec) []llms.Tool {
	tools := make([]llms.Tool, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return tools
}

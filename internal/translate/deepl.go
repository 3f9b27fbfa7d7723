package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DeepLProEndpoint  = "https://api.deepl.com/v2/translate"
	DeepLFreeEndpoint = "https://api-free.deepl.com/v2/translate"
)

// DeepLRetry is three attempts, 400ms times the attempt number apart.
var DeepLRetry = Retry{Attempts: 3, Backoff: 400 * time.Millisecond}

type DeepL struct {
	client   *http.Client
	key      string
	endpoint string
}

// NewDeepL returns a DeepL client. Keys ending in ":fx" go to the free API
// host unless endpoint is set.
func NewDeepL(client *http.Client, key, endpoint string) *DeepL {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DeepLProEndpoint
		if strings.HasSuffix(key, ":fx") {
			endpoint = DeepLFreeEndpoint
		}
	}
	return &DeepL{client: client, key: key, endpoint: endpoint}
}

func (d *DeepL) Provider() Provider {
	return Provider{
		Name:     ProviderDeepL,
		MaxChunk: DeepLMaxChunk,
		Retry:    DeepLRetry,
		Glossary: true,
		Batch:    d.Translate,
		Single: func(ctx context.Context, chunk string, opts CallOptions) (string, error) {
			out, err := d.Translate(ctx, []string{chunk}, opts)
			if err != nil {
				return "", err
			}
			if len(out) != 1 {
				return "", fmt.Errorf("deepl returned %d translations", len(out))
			}
			return out[0], nil
		},
	}
}

type deeplRequest struct {
	Text        []string `json:"text"`
	SourceLang  string   `json:"source_lang"`
	TargetLang  string   `json:"target_lang"`
	TagHandling string   `json:"tag_handling,omitempty"`
	IgnoreTags  []string `json:"ignore_tags,omitempty"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
	Message string `json:"message"`
}

// Translate sends texts in one request.
func (d *DeepL) Translate(ctx context.Context, texts []string, opts CallOptions) ([]string, error) {
	payload := deeplRequest{Text: texts, SourceLang: "EN", TargetLang: "ES"}
	if opts.HTML {
		payload.TagHandling = "html"
		payload.IgnoreTags = []string{KeepTag}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepl request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("deepl read: %w", err)
	}
	var parsed deeplResponse
	_ = json.Unmarshal(raw, &parsed)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepl status %d: %s", resp.StatusCode, upstreamMessage(parsed.Message, raw))
	}

	out := make([]string, 0, len(parsed.Translations))
	for _, t := range parsed.Translations {
		out = append(out, t.Text)
	}
	return out, nil
}

func upstreamMessage(msg string, raw []byte) string {
	if msg != "" {
		return msg
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

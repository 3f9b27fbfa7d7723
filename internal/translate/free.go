package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	GoogleEndpoint   = "https://translate.googleapis.com/translate_a/single"
	MyMemoryEndpoint = "https://api.mymemory.translated.net/get"
)

// Free uses public endpoints that need no credential. Every call carries its
// own timeout.
type Free struct {
	client   *http.Client
	timeout  time.Duration
	google   string
	mymemory string
}

func NewFree(client *http.Client, timeout time.Duration) *Free {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Free{client: client, timeout: timeout, google: GoogleEndpoint, mymemory: MyMemoryEndpoint}
}

// WithEndpoints overrides the public endpoints.
func (f *Free) WithEndpoints(google, mymemory string) *Free {
	c := *f
	if google != "" {
		c.google = google
	}
	if mymemory != "" {
		c.mymemory = mymemory
	}
	return &c
}

func (f *Free) Provider() Provider {
	return Provider{
		Name:     ProviderFree,
		MaxChunk: FreeMaxChunk,
		Retry:    Retry{Attempts: 1},
		Single:   f.Translate,
	}
}

// Translate tries Google first and MyMemory when Google yields nothing.
func (f *Free) Translate(ctx context.Context, chunk string, _ CallOptions) (string, error) {
	out, gErr := f.googleCall(ctx, chunk)
	if gErr == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	out, mErr := f.myMemoryCall(ctx, chunk)
	if mErr == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	if gErr == nil && mErr == nil {
		return "", ErrEmpty
	}
	return "", multierr.Combine(gErr, mErr)
}

func (f *Free) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func (f *Free) googleCall(ctx context.Context, chunk string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "en")
	q.Set("tl", "es")
	q.Set("dt", "t")
	q.Set("q", chunk)
	raw, err := f.get(ctx, f.google, q)
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}

	// [[["Hola","Hello",...],...],null,"en",...]
	var parsed []json.RawMessage
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed) == 0 {
		return "", errors.New("google: unexpected response")
	}
	var segments [][]any
	if err := json.Unmarshal(parsed[0], &segments); err != nil {
		return "", errors.New("google: unexpected response")
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.Number `json:"responseStatus"`
}

func (f *Free) myMemoryCall(ctx context.Context, chunk string) (string, error) {
	q := url.Values{}
	q.Set("q", chunk)
	q.Set("langpair", "en|es")
	raw, err := f.get(ctx, f.mymemory, q)
	if err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}
	var parsed myMemoryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}
	if s := parsed.ResponseStatus.String(); s != "" && s != "200" {
		return "", fmt.Errorf("mymemory: status %s", s)
	}
	return parsed.ResponseData.TranslatedText, nil
}

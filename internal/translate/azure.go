package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const AzureEndpoint = "https://api.cognitive.microsofttranslator.com"

type Azure struct {
	client   *http.Client
	key      string
	region   string
	endpoint string
}

func NewAzure(client *http.Client, key, region, endpoint string) *Azure {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = AzureEndpoint
	}
	return &Azure{client: client, key: key, region: region, endpoint: strings.TrimRight(endpoint, "/")}
}

// Provider has no per-chunk degrade; a failed Azure call hands over to the
// next provider in the chain.
func (a *Azure) Provider() Provider {
	return Provider{
		Name:     ProviderAzure,
		MaxChunk: AzureMaxChunk,
		Retry:    Retry{Attempts: 1},
		Batch:    a.Translate,
	}
}

type azureText struct {
	Text string `json:"Text"`
}

type azureResult struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

type azureError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate posts all texts as one array.
func (a *Azure) Translate(ctx context.Context, texts []string, opts CallOptions) ([]string, error) {
	items := make([]azureText, len(texts))
	for i, t := range texts {
		items[i] = azureText{Text: t}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("from", "en")
	q.Set("to", "es")
	if opts.HTML {
		q.Set("textType", "html")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/translate?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.key)
	if a.region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", a.region)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("azure read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e azureError
		_ = json.Unmarshal(raw, &e)
		return nil, fmt.Errorf("azure status %d: %s", resp.StatusCode, upstreamMessage(e.Error.Message, raw))
	}

	var parsed []azureResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("azure decode: %w", err)
	}
	out := make([]string, len(parsed))
	for i, r := range parsed {
		if len(r.Translations) > 0 {
			out[i] = r.Translations[0].Text
		}
	}
	return out, nil
}

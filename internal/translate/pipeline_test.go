package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/models"
)

const samplePrompt = "Translate the article.\n\nEnglish Title: Hello\n\nEnglish Excerpt: World\n\nEnglish Body: Test body."

func decodeResult(t *testing.T, content string) models.TranslationResult {
	t.Helper()
	var res models.TranslationResult
	require.NoError(t, json.Unmarshal([]byte(content), &res))
	return res
}

func TestProviders_Order(t *testing.T) {
	names := func(ps []Provider) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return out
	}

	cfg := config.Default()
	assert.Equal(t, []string{ProviderFree}, names(Providers(cfg, nil)))

	cfg.AzureKey = "a"
	cfg.DeepLKey = "d"
	assert.Equal(t, []string{ProviderAzure, ProviderDeepL, ProviderFree}, names(Providers(cfg, nil)))

	cfg.TranslatePrimary = "DeepL"
	assert.Equal(t, []string{ProviderDeepL, ProviderAzure, ProviderFree}, names(Providers(cfg, nil)))

	cfg.TranslatePrimary = "azure"
	cfg.AzureKey = ""
	assert.Equal(t, []string{ProviderDeepL, ProviderFree}, names(Providers(cfg, nil)))
}

func TestPipeline_DeepLWithoutCompletionKey(t *testing.T) {
	srv := fakeDeepL(t, nil)

	cfg := config.Default()
	cfg.DeepLKey = "test-key"
	cfg.DeepLEndpoint = srv.URL
	p := FromConfig(cfg, srv.Client(), zaptest.NewLogger(t))

	out := p.Run(context.Background(), samplePrompt, "")
	assert.Equal(t, ProviderDeepL, out.Provider)

	res := decodeResult(t, out.Content)
	assert.Equal(t, "Hola", res.Title)
	assert.Equal(t, "Mundo", res.Excerpt)
	assert.Equal(t, "Cuerpo de prueba.", res.Body)
	assert.Equal(t, res.Title, res.MetaTitle)
	assert.Equal(t, res.Excerpt, res.MetaDescription)
	assert.NotContains(t, out.Content, `"provider"`)
}

func TestPipeline_BodyFailureKeepsEnglish(t *testing.T) {
	flaky := Provider{Name: "flaky", MaxChunk: 100, Single: func(_ context.Context, chunk string, _ CallOptions) (string, error) {
		if strings.Contains(chunk, "body") {
			return "", errors.New("unavailable")
		}
		return "ES " + chunk, nil
	}}
	p := New(NewChain([]Provider{flaky}, nil, zaptest.NewLogger(t)), nil, true, zaptest.NewLogger(t))

	res := p.Direct(context.Background(), models.TranslationRequest{Title: "Title", Excerpt: "", Body: "The body text"})
	assert.Equal(t, "ES Title", res.Title)
	assert.Equal(t, "", res.Excerpt)
	assert.Equal(t, "The body text", res.Body)
	assert.Equal(t, "flaky", res.Provider)
}

func TestPipeline_CompletionRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"output_text":"{\"title\":\"Hola\",\"excerpt\":\"Mundo\",\"body\":\"Cuerpo\",\"metaTitle\":\"Hola\",\"metaDescription\":\"Mundo\"}"}`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.CompletionAPIKey = "k"
	cfg.CompletionBaseURL = srv.URL
	p := FromConfig(cfg, srv.Client(), zaptest.NewLogger(t))

	out := p.Run(context.Background(), samplePrompt, "")
	assert.Equal(t, ProviderOpenAI, out.Provider)
	assert.Equal(t, "Cuerpo", decodeResult(t, out.Content).Body)
}

func TestPipeline_UnauthorizedFallsBackToDirect(t *testing.T) {
	deepl := fakeDeepL(t, nil)
	completion := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer completion.Close()

	chain := NewChain([]Provider{NewDeepL(deepl.Client(), "test-key", deepl.URL).Provider()}, nil, zaptest.NewLogger(t))
	p := New(chain, NewCompletion(completion.Client(), completion.URL, "bad", "", "m", 0, nil), false, zaptest.NewLogger(t))

	out := p.Run(context.Background(), samplePrompt, "")
	assert.Equal(t, ProviderDeepL, out.Provider)
	assert.Equal(t, "Hola", decodeResult(t, out.Content).Title)
}

func TestPipeline_DirectPrimarySkipsCompletion(t *testing.T) {
	deepl := fakeDeepL(t, nil)
	called := false
	completion := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer completion.Close()

	cfg := config.Default()
	cfg.CompletionAPIKey = "k"
	cfg.CompletionBaseURL = completion.URL
	cfg.TranslatePrimary = config.PrimaryDeepL
	cfg.DeepLKey = "test-key"
	cfg.DeepLEndpoint = deepl.URL
	p := FromConfig(cfg, http.DefaultClient, zaptest.NewLogger(t))

	out := p.Run(context.Background(), samplePrompt, "")
	assert.Equal(t, ProviderDeepL, out.Provider)
	assert.False(t, called)
}

package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/llm"
	"github.com/RichardoC/firmsite-copilot/internal/models"
)

// Outcome is what translate mode hands back to the caller. Content is a
// JSON encoded TranslationResult or raw model output.
type Outcome struct {
	Content  string
	Provider string
}

// Pipeline picks between the completion endpoint and the direct providers.
type Pipeline struct {
	chain      *Chain
	completion *Completion
	direct     bool
	logger     *zap.Logger
}

// New builds a pipeline. completion may be nil. When direct is set the
// completion endpoint is never used.
func New(chain *Chain, completion *Completion, direct bool, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{chain: chain, completion: completion, direct: direct, logger: logger}
}

// FromConfig wires every provider cfg has credentials for. Only the
// completion endpoint receives the organization and project headers.
func FromConfig(cfg config.Config, httpClient *http.Client, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := NewChain(Providers(cfg, httpClient), NewGlossary(cfg.DeepLGlossary), logger)

	var completion *Completion
	if cfg.CompletionAPIKey != "" {
		completion = NewCompletion(llm.NewHTTPClient(httpClient, cfg.Organization, cfg.Project), cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.Organization, cfg.Model, cfg.Temperature, logger)
	}
	return New(chain, completion, cfg.Primary() != "", logger)
}

// Providers returns the direct chain: the configured primary first, else
// Azure then DeepL, and the free tier last. Providers without a credential
// are left out.
func Providers(cfg config.Config, httpClient *http.Client) []Provider {
	var azure, deepl *Provider
	if cfg.AzureKey != "" {
		p := NewAzure(httpClient, cfg.AzureKey, cfg.AzureRegion, cfg.AzureEndpoint).Provider()
		azure = &p
	}
	if cfg.DeepLKey != "" {
		p := NewDeepL(httpClient, cfg.DeepLKey, cfg.DeepLEndpoint).Provider()
		deepl = &p
	}

	order := []*Provider{azure, deepl}
	if cfg.Primary() == config.PrimaryDeepL {
		order = []*Provider{deepl, azure}
	}

	var out []Provider
	for _, p := range order {
		if p != nil {
			out = append(out, *p)
		}
	}
	return append(out, NewFree(httpClient, cfg.FreeTierTimeout).Provider())
}

// Run translates the English fields found in prompt. It never fails: every
// error falls through to the next route and finally to the source text.
func (p *Pipeline) Run(ctx context.Context, prompt, model string) Outcome {
	if p.direct || p.completion == nil {
		return p.directOutcome(ctx, ParsePrompt(prompt))
	}

	out, err := p.completion.Translate(ctx, prompt, model)
	if err == nil {
		return Outcome{Content: out, Provider: ProviderOpenAI}
	}
	if errors.Is(err, ErrUnauthorized) {
		p.logger.Warn("completion endpoint unauthorized, using direct providers", zap.Error(err))
	} else {
		p.logger.Warn("completion translation failed, using direct providers", zap.Error(err))
	}
	return p.directOutcome(ctx, ParsePrompt(prompt))
}

func (p *Pipeline) directOutcome(ctx context.Context, req models.TranslationRequest) Outcome {
	res := p.Direct(ctx, req)
	provider := res.Provider
	res.Provider = ""
	raw, _ := json.Marshal(res)
	return Outcome{Content: string(raw), Provider: provider}
}

// Direct translates title, excerpt and body concurrently through the chain.
// A field nothing could translate keeps its English text.
func (p *Pipeline) Direct(ctx context.Context, req models.TranslationRequest) models.TranslationResult {
	src := [3]string{req.Title, req.Excerpt, req.Body}
	var out, by [3]string

	var g errgroup.Group
	for i := range src {
		g.Go(func() error {
			text, provider, err := p.chain.Translate(ctx, src[i])
			if err != nil {
				p.logger.Warn("field kept in English", zap.Int("field", i), zap.Error(err))
				out[i] = src[i]
				return nil
			}
			out[i], by[i] = text, provider
			return nil
		})
	}
	_ = g.Wait()

	provider := by[2]
	if provider == "" {
		provider = by[0]
	}
	if provider == "" {
		provider = by[1]
	}
	return models.NewTranslationResult(out[0], out[1], out[2], provider)
}

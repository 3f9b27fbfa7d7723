package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/fetch"
	"github.com/RichardoC/firmsite-copilot/internal/llm"
	"github.com/RichardoC/firmsite-copilot/internal/search"
	"github.com/RichardoC/firmsite-copilot/internal/translate"
)

const upstreamTimeout = 60 * time.Second

// FromConfig wires the copilot service and translation pipeline for cfg.
// The copilot is left nil without a completion key so requests fail with
// MissingKeyMessage.
func FromConfig(cfg config.Config, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &http.Client{Timeout: upstreamTimeout}

	var copilot Copilot
	if cfg.CompletionAPIKey != "" {
		completionClient := llm.NewHTTPClient(client, cfg.Organization, cfg.Project)
		completer, err := llm.NewOpenAICompleter(cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.Model, cfg.Organization, completionClient)
		if err != nil {
			return nil, fmt.Errorf("create completer: %w", err)
		}
		temperature, maxTokens := cfg.Temperature, cfg.MaxTokens
		copilot = llm.New(completer,
			fetch.New(client, cfg.FetchUserAgent, logger.Named("fetch")),
			search.New(client, cfg.SearchAPIKey, cfg.SearchEndpoint, logger.Named("search")),
			llm.Options{Model: cfg.Model, Temperature: &temperature, MaxTokens: &maxTokens},
			logger.Named("copilot"))
	}

	pipeline := translate.FromConfig(cfg, client, logger.Named("translate"))
	return NewHandler(cfg, copilot, pipeline, logger), nil
}

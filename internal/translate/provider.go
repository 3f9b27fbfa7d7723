package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	ProviderDeepL  = "deepl"
	ProviderAzure  = "azure"
	ProviderFree   = "free"
	ProviderOpenAI = "openai"
)

var (
	ErrEmpty      = errors.New("empty translation")
	ErrNoProvider = errors.New("no translation provider succeeded")
)

// CallOptions are passed to every provider call.
type CallOptions struct {
	// HTML asks the provider to treat the text as markup.
	HTML bool
}

// BatchFunc translates chunks in one request and returns one result per chunk.
type BatchFunc func(ctx context.Context, chunks []string, opts CallOptions) ([]string, error)

// SingleFunc translates one chunk.
type SingleFunc func(ctx context.Context, chunk string, opts CallOptions) (string, error)

// Retry is a linear backoff policy: the wait after attempt n is n*Backoff.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// Provider describes one translation backend.
//
// When Batch is set the whole text goes out in one call, retried per Retry.
// If that still fails and Single is set, chunks are sent one at a time and a
// chunk that fails keeps its source text. A provider with only Single always
// works chunk by chunk.
type Provider struct {
	Name     string
	MaxChunk int
	Retry    Retry
	Glossary bool
	Batch    BatchFunc
	Single   SingleFunc

	sleep func(context.Context, time.Duration) error
}

// Translate runs text through p. It fails when nothing usable came back.
func (p Provider) Translate(ctx context.Context, text string, glossary *Glossary) (string, error) {
	useGlossary := p.Glossary && glossary != nil
	src := text
	if useGlossary {
		src = glossary.Protect(text)
	}
	opts := CallOptions{HTML: useGlossary || hasMarkup(src)}

	pieces := Split(src, p.MaxChunk)
	leads := make([]string, len(pieces))
	trails := make([]string, len(pieces))
	var cores []string
	var slots []int
	for i, piece := range pieces {
		lead, core, trail := trimParts(piece)
		leads[i], trails[i] = lead, trail
		if core != "" {
			cores = append(cores, core)
			slots = append(slots, i)
		} else {
			pieces[i] = ""
		}
	}
	if len(cores) == 0 {
		return text, nil
	}

	out, err := p.translateCores(ctx, cores, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", p.Name, err)
	}

	for n, i := range slots {
		pieces[i] = out[n]
	}
	var b strings.Builder
	for i := range pieces {
		b.WriteString(leads[i])
		b.WriteString(pieces[i])
		b.WriteString(trails[i])
	}
	result := b.String()
	if useGlossary || opts.HTML {
		result = Unprotect(result)
	}
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("%s: %w", p.Name, ErrEmpty)
	}
	return result, nil
}

func (p Provider) translateCores(ctx context.Context, cores []string, opts CallOptions) ([]string, error) {
	var batchErr error
	if p.Batch != nil {
		out, err := p.withRetry(ctx, func() ([]string, error) {
			res, err := p.Batch(ctx, cores, opts)
			if err != nil {
				return nil, err
			}
			if len(res) != len(cores) {
				return nil, fmt.Errorf("got %d translations for %d chunks", len(res), len(cores))
			}
			return res, nil
		})
		if err == nil {
			return out, nil
		}
		batchErr = err
		if p.Single == nil || ctx.Err() != nil {
			return nil, err
		}
	}
	if p.Single == nil {
		return nil, errors.New("provider has no call")
	}

	out := make([]string, len(cores))
	var errs error
	failed := 0
	for i, core := range cores {
		res, err := p.Single(ctx, core, opts)
		if err == nil && strings.TrimSpace(res) == "" {
			err = ErrEmpty
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chunk %d: %w", i, err))
			out[i] = core
			failed++
			continue
		}
		out[i] = res
	}
	if failed == len(cores) {
		return nil, multierr.Append(batchErr, errs)
	}
	return out, nil
}

func (p Provider) withRetry(ctx context.Context, call func() ([]string, error)) ([]string, error) {
	attempts := p.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var errs error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}
		errs = multierr.Append(errs, err)
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*p.Retry.Backoff); err != nil {
			return nil, multierr.Append(errs, err)
		}
	}
	return nil, errs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Chain tries providers in order and keeps the first non-empty result.
type Chain struct {
	providers []Provider
	glossary  *Glossary
	logger    *zap.Logger
}

func NewChain(providers []Provider, glossary *Glossary, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, glossary: glossary, logger: logger}
}

// Names lists the providers in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name
	}
	return names
}

// Translate returns the translation and the name of the provider that made
// it. Blank text is returned unchanged with no provider.
func (c *Chain) Translate(ctx context.Context, text string) (string, string, error) {
	if strings.TrimSpace(text) == "" {
		return text, "", nil
	}
	var errs error
	for _, p := range c.providers {
		out, err := p.Translate(ctx, text, c.glossary)
		if err != nil {
			c.logger.Warn("translation provider failed", zap.String("provider", p.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return out, p.Name, nil
	}
	if errs == nil {
		return "", "", ErrNoProvider
	}
	return "", "", multierr.Append(ErrNoProvider, errs)
}

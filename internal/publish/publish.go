// Package publish is the caller side of article translation: it enforces the
// daily character budget, runs the translation and records usage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/firmsite-copilot/internal/models"
	"github.com/RichardoC/firmsite-copilot/internal/translate"
)

var (
	ErrBudgetExceeded = errors.New("daily translation budget exceeded")
	ErrNoTranslation  = errors.New("translation returned no usable JSON")
)

// Translator is satisfied by *translate.Pipeline.
type Translator interface {
	Run(ctx context.Context, prompt, model string) translate.Outcome
}

// Ledger is satisfied by *db.Database.
type Ledger interface {
	CharsOn(day string) (int, error)
	RecordRun(run *models.TranslationRun) error
}

type Publisher struct {
	translator Translator
	ledger     Ledger
	budget     int
	model      string
	now        func() time.Time
	logger     *zap.Logger
}

// New returns a Publisher. A budget of zero or less means no daily limit.
func New(translator Translator, ledger Ledger, budget int, model string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		translator: translator,
		ledger:     ledger,
		budget:     budget,
		model:      model,
		now:        time.Now,
		logger:     logger,
	}
}

// Prompt builds the combined instruction and source text sent in translate
// mode.
func Prompt(req models.TranslationRequest) string {
	var b strings.Builder
	b.WriteString("Translate this law firm article from English to Latin-American Spanish. ")
	b.WriteString("Keep Markdown and HTML intact and return JSON with title, excerpt, body, metaTitle and metaDescription.\n\n")
	fmt.Fprintf(&b, "English Title: %s\n\n", req.Title)
	fmt.Fprintf(&b, "English Excerpt: %s\n\n", req.Excerpt)
	fmt.Fprintf(&b, "English Body: %s", req.Body)
	return b.String()
}

// Translate checks the budget, translates req and records the run under
// slug. Usage is only recorded when a result could be parsed and some
// provider produced it.
func (p *Publisher) Translate(ctx context.Context, slug string, req models.TranslationRequest) (models.TranslationResult, error) {
	now := p.now()
	chars := req.Chars()

	if p.budget > 0 {
		used, err := p.ledger.CharsOn(models.Day(now))
		if err != nil {
			return models.TranslationResult{}, fmt.Errorf("read usage: %w", err)
		}
		if used+chars > p.budget {
			return models.TranslationResult{}, fmt.Errorf("%w: %d used, %d requested, %d allowed", ErrBudgetExceeded, used, chars, p.budget)
		}
	}

	out := p.translator.Run(ctx, Prompt(req), p.model)

	var res models.TranslationResult
	if err := translate.ExtractJSON(out.Content, &res); err != nil {
		p.logger.Warn("translation output not parsed", zap.String("slug", slug), zap.String("provider", out.Provider), zap.Error(err))
		return models.TranslationResult{}, fmt.Errorf("%w: %v", ErrNoTranslation, err)
	}
	res = models.NewTranslationResult(res.Title, res.Excerpt, res.Body, out.Provider)
	if out.Provider == "" {
		p.logger.Warn("no provider translated the article, usage not recorded", zap.String("slug", slug))
		return res, nil
	}

	run := &models.TranslationRun{Slug: slug, Provider: out.Provider, Chars: chars, CreatedAt: now}
	if err := p.ledger.RecordRun(run); err != nil {
		p.logger.Error("failed to record translation usage", zap.String("slug", slug), zap.Error(err))
		return res, fmt.Errorf("record usage: %w", err)
	}

	p.logger.Info("article translated",
		zap.String("slug", slug),
		zap.String("provider", out.Provider),
		zap.Int("chars", chars))
	return res, nil
}

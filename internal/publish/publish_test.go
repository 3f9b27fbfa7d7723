package publish

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/RichardoC/firmsite-copilot/internal/db"
	"github.com/RichardoC/firmsite-copilot/internal/models"
	"github.com/RichardoC/firmsite-copilot/internal/translate"
)

type fakeTranslator struct {
	outcome translate.Outcome
	prompts []string
}

func (f *fakeTranslator) Run(_ context.Context, prompt, _ string) translate.Outcome {
	f.prompts = append(f.prompts, prompt)
	return f.outcome
}

var article = models.TranslationRequest{Title: "Hello", Excerpt: "World", Body: "Test body."}

func newLedger(t *testing.T) *db.Database {
	t.Helper()
	ledger, err := db.New(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestPrompt_RoundTripsThroughParser(t *testing.T) {
	assert.Equal(t, article, translate.ParsePrompt(Prompt(article)))
}

func TestTranslate_RecordsUsage(t *testing.T) {
	ledger := newLedger(t)
	tr := &fakeTranslator{outcome: translate.Outcome{
		Content:  "```json\n{\"title\":\"Hola\",\"excerpt\":\"Mundo\",\"body\":\"Cuerpo.\",\"metaTitle\":\"otro\"}\n```",
		Provider: "deepl",
	}}
	p := New(tr, ledger, 0, "", zaptest.NewLogger(t))
	p.now = func() time.Time { return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC) }

	res, err := p.Translate(context.Background(), "hello-world", article)
	require.NoError(t, err)
	assert.Equal(t, models.NewTranslationResult("Hola", "Mundo", "Cuerpo.", "deepl"), res)
	require.Len(t, tr.prompts, 1)
	assert.Contains(t, tr.prompts[0], "English Title: Hello")

	used, err := ledger.CharsOn("2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, article.Chars(), used)
}

func TestTranslate_Budget(t *testing.T) {
	ledger := newLedger(t)
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.RecordRun(&models.TranslationRun{Slug: "x", Provider: "free", Chars: 95, CreatedAt: now}))

	tr := &fakeTranslator{outcome: translate.Outcome{Content: `{"title":"Hola"}`}}
	p := New(tr, ledger, 100, "", zaptest.NewLogger(t))
	p.now = func() time.Time { return now }

	_, err := p.Translate(context.Background(), "a", article)
	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Empty(t, tr.prompts)

	// a new day starts from zero
	p.now = func() time.Time { return now.Add(24 * time.Hour) }
	_, err = p.Translate(context.Background(), "a", article)
	require.NoError(t, err)
}

func TestTranslate_UnparsableOutputNotRecorded(t *testing.T) {
	ledger := newLedger(t)
	p := New(&fakeTranslator{outcome: translate.Outcome{Content: "sorry, I cannot"}}, ledger, 0, "", zaptest.NewLogger(t))

	_, err := p.Translate(context.Background(), "a", article)
	require.ErrorIs(t, err, ErrNoTranslation)

	stats, err := ledger.Usage()
	require.NoError(t, err)
	assert.Zero(t, stats.Total())
}

func TestTranslate_UntranslatedNotRecorded(t *testing.T) {
	ledger := newLedger(t)
	tr := &fakeTranslator{outcome: translate.Outcome{Content: `{"title":"Hello","excerpt":"World","body":"Test body."}`}}
	p := New(tr, ledger, 100, "", zaptest.NewLogger(t))

	res, err := p.Translate(context.Background(), "a", article)
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Title)
	assert.Empty(t, res.Provider)

	stats, err := ledger.Usage()
	require.NoError(t, err)
	assert.Zero(t, stats.Total())
}

type brokenLedger struct{}

func (brokenLedger) CharsOn(string) (int, error) { return 0, errors.New("disk gone") }
func (brokenLedger) RecordRun(*models.TranslationRun) error { return errors.New("disk gone") }

func TestTranslate_LedgerErrors(t *testing.T) {
	tr := &fakeTranslator{outcome: translate.Outcome{Content: `{"title":"Hola"}`, Provider: "free"}}

	_, err := New(tr, brokenLedger{}, 10, "", nil).Translate(context.Background(), "a", models.TranslationRequest{Title: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read usage")

	res, err := New(tr, brokenLedger{}, 0, "", nil).Translate(context.Background(), "a", models.TranslationRequest{Title: "Hi"})
	require.Error(t, err)
	assert.Equal(t, "Hola", res.Title)
}

package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func upper(_ context.Context, chunks []string, _ CallOptions) ([]string, error) {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = strings.ToUpper(c)
	}
	return out, nil
}

func TestProvider_RetryWithLinearBackoff(t *testing.T) {
	calls := 0
	var waits []time.Duration
	p := Provider{
		Name:     "test",
		MaxChunk: 100,
		Retry:    DeepLRetry,
		Batch: func(ctx context.Context, chunks []string, opts CallOptions) ([]string, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("busy")
			}
			return upper(ctx, chunks, opts)
		},
		sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}

	out, err := p.Translate(context.Background(), "hello there", nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO THERE", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{400 * time.Millisecond, 800 * time.Millisecond}, waits)
}

func TestProvider_DegradesPerChunk(t *testing.T) {
	batchCalls := 0
	var singles []string
	p := Provider{
		Name:     "test",
		MaxChunk: 20,
		Retry:    Retry{Attempts: 3},
		Batch: func(context.Context, []string, CallOptions) ([]string, error) {
			batchCalls++
			return nil, errors.New("down")
		},
		Single: func(_ context.Context, chunk string, _ CallOptions) (string, error) {
			singles = append(singles, chunk)
			if strings.Contains(chunk, "bad") {
				return "", errors.New("rejected")
			}
			return strings.ToUpper(chunk), nil
		},
		sleep: func(context.Context, time.Duration) error { return nil },
	}

	out, err := p.Translate(context.Background(), "first part ok.\n\nthis bad bit.\n\nlast one fine.", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, batchCalls)
	assert.Equal(t, []string{"first part ok.", "this bad bit.", "last one fine."}, singles)
	assert.Equal(t, "FIRST PART OK.\n\nthis bad bit.\n\nLAST ONE FINE.", out)
}

func TestProvider_AllChunksFail(t *testing.T) {
	p := Provider{
		Name:     "test",
		MaxChunk: 50,
		Single: func(context.Context, string, CallOptions) (string, error) {
			return "", errors.New("nope")
		},
	}
	_, err := p.Translate(context.Background(), "text", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestProvider_EmptyResultFails(t *testing.T) {
	p := Provider{
		Name:     "test",
		MaxChunk: 50,
		Batch: func(_ context.Context, chunks []string, _ CallOptions) ([]string, error) {
			return make([]string, len(chunks)), nil
		},
	}
	_, err := p.Translate(context.Background(), "text", nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestProvider_PreservesWhitespaceAroundChunks(t *testing.T) {
	var sent []string
	p := Provider{
		Name:     "test",
		MaxChunk: 12,
		Batch: func(ctx context.Context, chunks []string, opts CallOptions) ([]string, error) {
			sent = append(sent, chunks...)
			return upper(ctx, chunks, opts)
		},
	}
	out, err := p.Translate(context.Background(), "  one two.\n\nthree four\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "  ONE TWO.\n\nTHREE FOUR\n", out)
	for _, s := range sent {
		assert.Equal(t, strings.TrimSpace(s), s)
	}
}

func TestProvider_GlossaryAndHTMLOptions(t *testing.T) {
	var got CallOptions
	var sent []string
	p := Provider{
		Name:     "test",
		MaxChunk: 500,
		Glossary: true,
		Batch: func(_ context.Context, chunks []string, opts CallOptions) ([]string, error) {
			got = opts
			sent = append(sent, chunks...)
			return chunks, nil
		},
	}
	out, err := p.Translate(context.Background(), "Call Smith now", NewGlossary([]string{"smith"}))
	require.NoError(t, err)
	assert.True(t, got.HTML)
	assert.Equal(t, []string{"Call <keep>Smith</keep> now"}, sent)
	assert.Equal(t, "Call Smith now", out)

	p.Glossary = false
	_, err = p.Translate(context.Background(), "plain text", NewGlossary([]string{"smith"}))
	require.NoError(t, err)
	assert.False(t, got.HTML)

	_, err = p.Translate(context.Background(), "<p>markup</p>", nil)
	require.NoError(t, err)
	assert.True(t, got.HTML)
}

func TestChain_FallbackOrder(t *testing.T) {
	var tried []string
	failing := Provider{Name: "primary", MaxChunk: 100, Batch: func(context.Context, []string, CallOptions) ([]string, error) {
		tried = append(tried, "primary")
		return nil, errors.New("quota exceeded")
	}}
	empty := Provider{Name: "secondary", MaxChunk: 100, Batch: func(_ context.Context, chunks []string, _ CallOptions) ([]string, error) {
		tried = append(tried, "secondary")
		return make([]string, len(chunks)), nil
	}}
	working := Provider{Name: "free", MaxChunk: 100, Single: func(_ context.Context, chunk string, _ CallOptions) (string, error) {
		tried = append(tried, "free")
		return "hola", nil
	}}

	chain := NewChain([]Provider{failing, empty, working}, nil, zaptest.NewLogger(t))
	assert.Equal(t, []string{"primary", "secondary", "free"}, chain.Names())

	out, provider, err := chain.Translate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Equal(t, "free", provider)
	assert.Equal(t, []string{"primary", "secondary", "free"}, tried)
}

func TestChain_StopsAtFirstSuccess(t *testing.T) {
	second := false
	chain := NewChain([]Provider{
		{Name: "a", MaxChunk: 100, Batch: upper},
		{Name: "b", MaxChunk: 100, Batch: func(context.Context, []string, CallOptions) ([]string, error) {
			second = true
			return nil, nil
		}},
	}, nil, nil)

	out, provider, err := chain.Translate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "HI", out)
	assert.Equal(t, "a", provider)
	assert.False(t, second)
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain([]Provider{
		{Name: "a", MaxChunk: 100, Batch: func(context.Context, []string, CallOptions) ([]string, error) {
			return nil, errors.New("a down")
		}},
	}, nil, zaptest.NewLogger(t))

	_, provider, err := chain.Translate(context.Background(), "hi")
	require.ErrorIs(t, err, ErrNoProvider)
	assert.Contains(t, err.Error(), "a down")
	assert.Empty(t, provider)

	_, _, err = NewChain(nil, nil, nil).Translate(context.Background(), "hi")
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestChain_BlankText(t *testing.T) {
	chain := NewChain([]Provider{{Name: "a", MaxChunk: 100, Batch: func(context.Context, []string, CallOptions) ([]string, error) {
		t.Fatal("provider called for blank text")
		return nil, nil
	}}}, nil, nil)

	out, provider, err := chain.Translate(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "  ", out)
	assert.Empty(t, provider)
}

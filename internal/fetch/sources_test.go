package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindURLs(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{text: "no links here", want: nil},
		{text: "see https://a.example/x.", want: []string{"https://a.example/x"}},
		{
			text: "compare http://a.example and https://b.example/p?q=1, then https://c.example",
			want: []string{"http://a.example", "https://b.example/p?q=1"},
		},
		{text: "https://a.example https://a.example (https://b.example)", want: []string{"https://a.example", "https://b.example"}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FindURLs(tc.text, MaxPrimedSources), tc.text)
	}
}

func TestPrime(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<title>Page " + r.URL.Path + "</title><p>" + strings.Repeat("z", 2000) + "</p>"))
	}))
	defer srv.Close()

	f := New(srv.Client(), "", nil)
	msg := "summarize " + srv.URL + "/one and " + srv.URL + "/two and " + srv.URL + "/three"
	sources := f.Prime(context.Background(), msg)

	require.Len(t, sources, 2)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, "Page /one", sources[0].Title)

	ctxMsg := SourceContext(sources)
	assert.Contains(t, ctxMsg, "Sources:")
	assert.Contains(t, ctxMsg, "- Page /one ("+srv.URL+"/one)")
	assert.Contains(t, ctxMsg, "URL: "+srv.URL+"/two")
	assert.NotContains(t, ctxMsg, strings.Repeat("z", excerptChars+1))
	assert.Contains(t, ctxMsg, "ask the user for clarification")

	assert.Nil(t, f.Prime(context.Background(), "nothing to fetch"))
	assert.Equal(t, "", SourceContext(nil))
}

func TestSourceContext_Failed(t *testing.T) {
	msg := SourceContext([]Result{{URL: "https://down.example", Error: ErrFetchFailed}})
	assert.Contains(t, msg, "https://down.example (fetch failed: FETCH_FAILED)")
	assert.NotContains(t, msg, "Source 1")
}

package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxPrimedSources = 2
	excerptChars     = 1200
)

var urlInText = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}]+`)

// FindURLs returns up to limit distinct absolute URLs in text, in order of
// appearance. Trailing sentence punctuation is not part of the URL.
func FindURLs(text string, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, match := range urlInText.FindAllString(text, -1) {
		u := strings.TrimRight(match, ".,;:!?")
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Prime fetches the URLs mentioned in the latest user message. It returns
// nil when the message mentions none.
func (f *Fetcher) Prime(ctx context.Context, latestUserMessage string) []Result {
	urls := FindURLs(latestUserMessage, MaxPrimedSources)
	if len(urls) == 0 {
		return nil
	}
	sources := make([]Result, 0, len(urls))
	for _, u := range urls {
		res := f.Fetch(ctx, u)
		if res.URL == "" {
			res.URL = u
		}
		sources = append(sources, res)
	}
	return sources
}

// SourceContext renders fetched sources as the system message injected ahead
// of the conversation. It returns "" for no sources.
func SourceContext(sources []Result) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("The user's latest message references the pages below. They were fetched for you before this turn.\n\nSources:\n")
	for _, s := range sources {
		label := s.Title
		if label == "" {
			label = s.URL
		}
		if s.Failed() {
			fmt.Fprintf(&b, "- %s (fetch failed: %s)\n", s.URL, s.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", label, s.URL)
	}
	for i, s := range sources {
		if s.Failed() {
			continue
		}
		fmt.Fprintf(&b, "\nSource %d\nTitle: %s\nURL: %s\nExcerpt:\n%s\n", i+1, s.Title, s.URL, truncate(s.Text, excerptChars))
	}
	b.WriteString("\nStay on the topic of these sources and base your answer on them. ")
	b.WriteString("If a fetch failed or a source is unrelated to the request, ask the user for clarification or another link instead of inventing content.")
	return b.String()
}

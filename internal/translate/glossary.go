package translate

import (
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
)

// KeepTag marks text the provider must leave untouched.
const KeepTag = "keep"

var keepMarkup = regexp2.MustCompile(`</?`+KeepTag+`\s*>`, regexp2.IgnoreCase)

// Glossary protects a fixed set of terms from translation.
type Glossary struct {
	terms []string
	re    *regexp2.Regexp
}

// NewGlossary compiles terms into one whole-word, case-insensitive matcher.
// It returns nil when terms has no usable entries.
func NewGlossary(terms []string) *Glossary {
	seen := make(map[string]bool)
	var clean []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		k := strings.ToLower(t)
		if t == "" || seen[k] {
			continue
		}
		seen[k] = true
		clean = append(clean, t)
	}
	if len(clean) == 0 {
		return nil
	}

	// longest first so "Estate Planning Group" wins over "Estate Planning"
	sort.SliceStable(clean, func(i, j int) bool { return len(clean[i]) > len(clean[j]) })
	alts := make([]string, len(clean))
	for i, t := range clean {
		alts[i] = regexp2.Escape(t)
	}
	pattern := `(?<![\p{L}\p{N}_])(?:` + strings.Join(alts, "|") + `)(?![\p{L}\p{N}_])`
	return &Glossary{
		terms: clean,
		re:    regexp2.MustCompile(pattern, regexp2.IgnoreCase),
	}
}

func (g *Glossary) Terms() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.terms...)
}

// Protect wraps every glossary term found in text in keep tags. The matched
// text is kept as written.
func (g *Glossary) Protect(text string) string {
	if g == nil || text == "" {
		return text
	}
	out, err := g.re.ReplaceFunc(text, func(m regexp2.Match) string {
		return "<" + KeepTag + ">" + m.String() + "</" + KeepTag + ">"
	}, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// Unprotect removes keep tags left in a provider response.
func Unprotect(text string) string {
	out, err := keepMarkup.Replace(text, "", -1, -1)
	if err != nil {
		return text
	}
	return out
}

var anyTag = regexp2.MustCompile(`<\/?[A-Za-z][^>]*>`, regexp2.None)

// hasMarkup reports whether text contains HTML tags.
func hasMarkup(text string) bool {
	ok, err := anyTag.MatchString(text)
	return err == nil && ok
}

package translate

import (
	"strings"
	"unicode"
)

const (
	DeepLMaxChunk = 2500
	AzureMaxChunk = 420
	FreeMaxChunk  = 420
)

// Split cuts text into pieces of at most limit characters. Joining the pieces
// gives back text exactly. A cut prefers a paragraph break, then a sentence
// end in the back half of the window, then whitespace, and only splits a
// word when the window has none of those.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return []string{text}
	}

	var pieces []string
	for len(r) > limit {
		cut := cutPoint(r[:limit])
		pieces = append(pieces, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		pieces = append(pieces, string(r))
	}
	return pieces
}

// cutPoint returns the length of the next piece taken from window. It never
// cuts inside a markup tag or a keep span unless the whole window is one.
func cutPoint(window []rune) int {
	n := len(window)
	ok := cuttable(window)

	for i := n - 1; i > 0; i-- {
		if window[i] == '\n' && window[i-1] == '\n' && ok[i+1] {
			return i + 1
		}
	}

	for i := n - 2; i >= n/2; i-- {
		if isSentenceEnd(window[i]) && unicode.IsSpace(window[i+1]) && ok[i+2] {
			return i + 2
		}
	}

	for i := n - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) && ok[i+1] {
			return i + 1
		}
	}

	for c := n; c > 0; c-- {
		if ok[c] {
			return c
		}
	}
	return n
}

// cuttable reports for every offset 0..len(window) whether a piece may end
// there. Offsets inside a tag or between <keep> and </keep> are not.
func cuttable(window []rune) []bool {
	ok := make([]bool, len(window)+1)
	tagStart, depth := -1, 0
	for i, r := range window {
		ok[i] = tagStart < 0 && depth == 0
		switch {
		case tagStart < 0 && r == '<' && (i+1 == len(window) || isTagLead(window[i+1])):
			tagStart = i
		case tagStart >= 0 && r == '>':
			closing, name := tagName(window[tagStart+1 : i])
			if strings.EqualFold(name, KeepTag) {
				if closing {
					if depth > 0 {
						depth--
					}
				} else {
					depth++
				}
			}
			tagStart = -1
		}
	}
	ok[len(window)] = tagStart < 0 && depth == 0
	return ok
}

func isTagLead(r rune) bool {
	return r == '/' || r < unicode.MaxASCII && unicode.IsLetter(r)
}

// tagName returns the element name of a tag body such as "/keep" or
// "a href=...".
func tagName(body []rune) (closing bool, name string) {
	if len(body) > 0 && body[0] == '/' {
		closing, body = true, body[1:]
	}
	end := 0
	for end < len(body) && (unicode.IsLetter(body[end]) || unicode.IsDigit(body[end])) {
		end++
	}
	return closing, string(body[:end])
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}

// trimParts separates leading and trailing whitespace from the translatable
// core of s.
func trimParts(s string) (lead, core, trail string) {
	core = strings.TrimLeftFunc(s, unicode.IsSpace)
	lead = s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	trail = core[len(trimmed):]
	return lead, trimmed, trail
}

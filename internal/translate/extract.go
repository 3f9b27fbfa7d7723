package translate

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/RichardoC/firmsite-copilot/internal/models"
)

var ErrNoJSON = errors.New("no JSON object in text")

// ExtractJSON decodes the first { through the last } of text into v, after
// dropping Markdown code fences.
func ExtractJSON(text string, v any) error {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	text = strings.Join(kept, "\n")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}

var promptMarkers = []string{"English Title:", "English Excerpt:", "English Body:"}

// ParsePrompt pulls the English fields out of a combined translate prompt.
// Text without any marker is taken as the body.
func ParsePrompt(prompt string) models.TranslationRequest {
	fields := make([]string, len(promptMarkers))
	found := false
	for i, marker := range promptMarkers {
		at := strings.Index(prompt, marker)
		if at < 0 {
			continue
		}
		found = true
		rest := prompt[at+len(marker):]
		end := len(rest)
		for j, other := range promptMarkers {
			if j == i {
				continue
			}
			if k := strings.Index(rest, other); k >= 0 && k < end {
				end = k
			}
		}
		fields[i] = strings.TrimSpace(rest[:end])
	}
	if !found {
		return models.TranslationRequest{Body: strings.TrimSpace(prompt)}
	}
	return models.TranslationRequest{Title: fields[0], Excerpt: fields[1], Body: fields[2]}
}

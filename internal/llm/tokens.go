package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/RichardoC/firmsite-copilot/internal/models"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens approximates the prompt size of conversation. It uses the
// cl100k_base encoding when it can be loaded and four characters per token
// otherwise.
func EstimateTokens(conversation []models.ChatMessage) int {
	encodingOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			encoding = enc
		}
	})

	total := 0
	for _, m := range conversation {
		text := m.Content
		for _, tc := range m.ToolCalls {
			text += tc.Name + tc.Arguments
		}
		if encoding != nil {
			total += len(encoding.Encode(text, nil, nil))
		} else {
			total += len([]rune(text))/4 + 1
		}
		total += 4 // role and separators
	}
	return total
}

package models

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	ModeCopilot   = "copilot"
	ModeTranslate = "translate"
)

// Request is the JSON body accepted by the copilot endpoint.
type Request struct {
	Mode        string        `json:"mode"`
	Messages    []IncomingMsg `json:"messages"`
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens"`
	Prompt      string        `json:"prompt"`
}

// IncomingMsg is a caller supplied history entry. Content may be any JSON
// value and is coerced to text.
type IncomingMsg struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text renders Content as a string. Strings are unquoted, null becomes empty
// and any other value keeps its JSON text.
func (m IncomingMsg) Text() string {
	if len(m.Content) == 0 || string(m.Content) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	return string(m.Content)
}

// Response is the normalized success body.
type Response struct {
	Content   string       `json:"content"`
	ToolCalls []ClientCall `json:"toolCalls"`
	Provider  string       `json:"provider,omitempty"`
}

// TranslationRequest holds English article fields.
type TranslationRequest struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
}

// TranslationResult holds the Spanish fields. MetaTitle and MetaDescription
// are always copies of Title and Excerpt.
type TranslationResult struct {
	Title           string `json:"title"`
	Excerpt         string `json:"excerpt"`
	Body            string `json:"body"`
	MetaTitle       string `json:"metaTitle"`
	MetaDescription string `json:"metaDescription"`
	Provider        string `json:"provider,omitempty"`
}

// NewTranslationResult derives the meta fields from title and excerpt.
func NewTranslationResult(title, excerpt, body, provider string) TranslationResult {
	return TranslationResult{
		Title:           title,
		Excerpt:         excerpt,
		Body:            body,
		MetaTitle:       title,
		MetaDescription: excerpt,
		Provider:        provider,
	}
}

// Chars is the number of source characters billed for a translation.
func (r TranslationRequest) Chars() int {
	return len([]rune(r.Title)) + len([]rune(r.Excerpt)) + len([]rune(r.Body))
}

// UsageStats is the caller side translation budget record.
type UsageStats struct {
	ByDay    map[string]int `json:"byDay"`
	LastRun  time.Time      `json:"lastRun"`
	Provider string         `json:"provider"`
}

// Day formats t as the key used in UsageStats.ByDay.
func Day(t time.Time) string {
	return t.Format("2006-01-02")
}

// Total sums every recorded day.
func (u UsageStats) Total() int {
	total := 0
	for _, n := range u.ByDay {
		total += n
	}
	return total
}

func (u UsageStats) String() string {
	return "days=" + strconv.Itoa(len(u.ByDay)) + " chars=" + strconv.Itoa(u.Total()) + " provider=" + u.Provider
}

// TranslationRun is one successful translation recorded by the caller.
type TranslationRun struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Provider  string    `json:"provider"`
	Chars     int       `json:"chars"`
	CreatedAt time.Time `json:"created_at"`
}

package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	ErrInvalidURL  = "INVALID_URL"
	ErrFetchFailed = "FETCH_FAILED"

	MaxRawChars  = 8000
	MaxHTMLChars = 16000

	maxBodyBytes = 2 << 20
)

var (
	absoluteURL = regexp.MustCompile(`^https?://`)
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	titleTag    = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title\s*>`)
	anyTag      = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Result is the payload returned to the assistant for a fetchUrl call.
type Result struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the fetch produced an error payload.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Fetcher retrieves pages for the fetchUrl tool and for source priming.
type Fetcher struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func New(client *http.Client, userAgent string, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, userAgent: userAgent, logger: logger}
}

// Fetch never returns an error. Failures are reported in Result.Error so the
// assistant can react to them.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	rawURL = strings.TrimSpace(rawURL)
	if !absoluteURL.MatchString(rawURL) {
		return Result{Error: ErrInvalidURL}
	}

	contentType, body, err := f.get(ctx, rawURL)
	if err != nil {
		f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(err))
		return Result{URL: rawURL, Error: ErrFetchFailed}
	}

	if !isHTML(contentType) {
		return Result{URL: rawURL, Text: truncate(body, MaxRawChars)}
	}
	title, text := ExtractHTML(body)
	return Result{URL: rawURL, Title: title, Text: text}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), contentType)
	if err != nil {
		return "", "", fmt.Errorf("decode body: %w", err)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}
	return contentType, string(raw), nil
}

// ExtractHTML returns the page title and its visible text with scripts,
// styles and tags removed and whitespace collapsed, capped at MaxHTMLChars.
func ExtractHTML(page string) (string, string) {
	page = scriptBlock.ReplaceAllString(page, " ")
	page = styleBlock.ReplaceAllString(page, " ")

	title := ""
	if m := titleTag.FindStringSubmatch(page); m != nil {
		title = collapse(html.UnescapeString(anyTag.ReplaceAllString(m[1], " ")))
	}

	text := anyTag.ReplaceAllString(page, " ")
	text = collapse(html.UnescapeString(text))
	return title, truncate(text, MaxHTMLChars)
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mediaType == "text/html"
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ToolCreateTask    = "createTask"
	ToolNavigate      = "navigate"
	ToolCall          = "call"
	ToolMap           = "map"
	ToolFetchURL      = "fetchUrl"
	ToolSearchWeb     = "searchWeb"
	ToolCreateArticle = "createArticle"
	ToolUpdateArticle = "updateArticle"
)

// NavigationTargets are the pages the browser knows how to open.
var NavigationTargets = []string{"home", "about", "practice-areas", "articles", "contact", "tasks", "admin"}

// ToolSpec describes one function offered to the completion endpoint.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// IsServerTool reports whether name runs inside the handler. Every other
// tool is forwarded to the browser.
func IsServerTool(name string) bool {
	return name == ToolFetchURL || name == ToolSearchWeb
}

func object(required []string, props map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

var articleProps = map[string]any{
	"id":      str("Existing article id, when known"),
	"slug":    str("URL slug, lowercase words joined by hyphens"),
	"title":   str("Article title"),
	"excerpt": str("One or two sentence summary shown in listings"),
	"body":    str("Full article body in Markdown"),
	"status":  map[string]any{"type": "string", "enum": []string{"draft", "published"}},
	"tags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
}

// Manifest returns the fixed tool palette in a stable order.
func Manifest() []ToolSpec {
	return []ToolSpec{
		{
			Name:        ToolCreateTask,
			Description: "Add a task to the firm's task list.",
			Parameters:  object([]string{"title"}, map[string]any{"title": str("Short task title")}),
		},
		{
			Name:        ToolNavigate,
			Description: "Open a page of the site in the user's browser.",
			Parameters: object([]string{"target"}, map[string]any{
				"target": map[string]any{"type": "string", "enum": NavigationTargets},
			}),
		},
		{
			Name:        ToolCall,
			Description: "Start a phone call to the office or to a number the user gave.",
			Parameters:  object(nil, map[string]any{"number": str("Phone number; omit to call the office")}),
		},
		{
			Name:        ToolMap,
			Description: "Open directions to the office or to an address.",
			Parameters:  object(nil, map[string]any{"query": str("Address or place; omit for the office")}),
		},
		{
			Name:        ToolFetchURL,
			Description: "Fetch a web page and return its title and readable text.",
			Parameters:  object([]string{"url"}, map[string]any{"url": str("Absolute http(s) URL")}),
		},
		{
			Name:        ToolSearchWeb,
			Description: "Search the web and return titles, URLs and snippets.",
			Parameters: object([]string{"query"}, map[string]any{
				"query":      str("Search query"),
				"maxResults": map[string]any{"type": "integer", "minimum": 1, "maximum": 8},
			}),
		},
		{
			Name:        ToolCreateArticle,
			Description: "Save a new article. Only call with complete title, excerpt and body.",
			Parameters:  object([]string{"title", "body"}, articleProps),
		},
		{
			Name:        ToolUpdateArticle,
			Description: "Update an existing article found by id or slug. Send only fields that change plus the identifier.",
			Parameters:  object(nil, articleProps),
		},
	}
}

// Args is the typed argument set of one tool.
type Args interface {
	Tool() string
}

type CreateTaskArgs struct {
	Title string `json:"title"`
}

type NavigateArgs struct {
	Target string `json:"target"`
}

type CallArgs struct {
	Number string `json:"number"`
}

type MapArgs struct {
	Query string `json:"query"`
}

type FetchURLArgs struct {
	URL string `json:"url"`
}

type SearchWebArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type ArticleArgs struct {
	Name    string   `json:"-"`
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Body    string   `json:"body"`
	Status  string   `json:"status"`
	Tags    []string `json:"tags"`
}

type UnknownArgs struct {
	Name string
}

func (CreateTaskArgs) Tool() string { return ToolCreateTask }
func (NavigateArgs) Tool() string { return ToolNavigate }
func (CallArgs) Tool() string { return ToolCall }
func (MapArgs) Tool() string { return ToolMap }
func (FetchURLArgs) Tool() string { return ToolFetchURL }
func (SearchWebArgs) Tool() string { return ToolSearchWeb }
func (a ArticleArgs) Tool() string { return a.Name }
func (a UnknownArgs) Tool() string { return a.Name }

var ErrUnknownTool = errors.New("unknown tool")

// EmptyArgs returns the zero argument set for name.
func EmptyArgs(name string) Args {
	switch name {
	case ToolCreateTask:
		return CreateTaskArgs{}
	case ToolNavigate:
		return NavigateArgs{}
	case ToolCall:
		return CallArgs{}
	case ToolMap:
		return MapArgs{}
	case ToolFetchURL:
		return FetchURLArgs{}
	case ToolSearchWeb:
		return SearchWebArgs{}
	case ToolCreateArticle, ToolUpdateArticle:
		return ArticleArgs{Name: name}
	}
	return UnknownArgs{Name: name}
}

// ParseArgs decodes raw tool arguments into the typed set for name. On error
// the returned Args is the empty set, so callers can log and carry on.
func ParseArgs(name, raw string) (Args, error) {
	empty := EmptyArgs(name)
	if _, ok := empty.(UnknownArgs); ok {
		return empty, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return empty, nil
	}

	var err error
	var args Args
	switch name {
	case ToolCreateTask:
		var a CreateTaskArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	case ToolNavigate:
		var a NavigateArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	case ToolCall:
		var a CallArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	case ToolMap:
		var a MapArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	case ToolFetchURL:
		var a FetchURLArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	case ToolSearchWeb:
		var a SearchWebArgs
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	default:
		a := ArticleArgs{Name: name}
		err = json.Unmarshal([]byte(raw), &a)
		args = a
	}
	if err != nil {
		return empty, fmt.Errorf("parse %s arguments: %w", name, err)
	}
	return args, nil
}

// clientArgs returns raw as a JSON object for the browser, or {} when raw is
// not an object.
func clientArgs(raw string) (json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	var obj map[string]json.RawMessage
	if raw == "" || json.Unmarshal([]byte(raw), &obj) != nil || obj == nil {
		return json.RawMessage(`{}`), false
	}
	return json.RawMessage(raw), true
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/firmsite-copilot/internal/fetch"
	"github.com/RichardoC/firmsite-copilot/internal/models"
	"github.com/RichardoC/firmsite-copilot/internal/search"
)

// MaxRounds caps completion round trips per request.
const MaxRounds = 3

const toolAck = `{"ok":true}`

// Fetcher is the server side page reader.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
	Prime(ctx context.Context, latestUserMessage string) []fetch.Result
}

// Searcher is the server side web search.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) search.Result
}

// Service runs the copilot conversation loop.
type Service struct {
	completer Completer
	fetcher   Fetcher
	searcher  Searcher
	defaults  Options
	logger    *zap.Logger
}

func New(completer Completer, fetcher Fetcher, searcher Searcher, defaults Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		completer: completer,
		fetcher:   fetcher,
		searcher:  searcher,
		defaults:  defaults,
		logger:    logger,
	}
}

// Result is what the loop accumulated.
type Result struct {
	Content      string
	ClientCalls  []models.ClientCall
	Conversation []models.ChatMessage
	Rounds       int
}

// UpstreamError wraps a failed completion call. Its message is the upstream
// message so it can be returned to the caller as is.
type UpstreamError struct {
	Round int
	Err   error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

// loopState is threaded through the rounds. advance never mutates its input.
type loopState struct {
	conversation []models.ChatMessage
	finalContent string
	clientCalls  []models.ClientCall
	done         bool
}

// Run answers the caller's history. It stops when the assistant requests no
// tools or after MaxRounds round trips, whichever comes first.
func (s *Service) Run(ctx context.Context, history []models.IncomingMsg, opts Options) (Result, error) {
	opts = s.merge(opts)
	st := loopState{
		conversation: s.Conversation(ctx, history),
		clientCalls:  []models.ClientCall{},
	}

	rounds := 0
	for rounds < MaxRounds && !st.done {
		rounds++
		if ce := s.logger.Check(zap.DebugLevel, "completion round"); ce != nil {
			ce.Write(
				zap.Int("round", rounds),
				zap.Int("messages", len(st.conversation)),
				zap.Int("prompt_tokens_est", EstimateTokens(st.conversation)),
			)
		}

		turn, err := s.completer.Complete(ctx, st.conversation, Manifest(), opts)
		if err != nil {
			return Result{}, &UpstreamError{Round: rounds, Err: err}
		}
		st = s.advance(ctx, st, turn)
	}

	if !st.done {
		s.logger.Info("tool loop stopped at round limit", zap.Int("rounds", rounds), zap.Int("client_calls", len(st.clientCalls)))
	}
	return Result{
		Content:      st.finalContent,
		ClientCalls:  st.clientCalls,
		Conversation: st.conversation,
		Rounds:       rounds,
	}, nil
}

// Conversation builds the initial message list: system prompt, optional
// source context, then the caller's history coerced to role and text.
func (s *Service) Conversation(ctx context.Context, history []models.IncomingMsg) []models.ChatMessage {
	conv := make([]models.ChatMessage, 0, len(history)+2)
	conv = append(conv, models.ChatMessage{Role: models.RoleSystem, Content: SystemPrompt})

	if s.fetcher != nil {
		if latest := latestUserText(history); latest != "" {
			if sources := fetch.SourceContext(s.fetcher.Prime(ctx, latest)); sources != "" {
				conv = append(conv, models.ChatMessage{Role: models.RoleSystem, Content: sources})
			}
		}
	}

	for _, m := range history {
		conv = append(conv, models.ChatMessage{Role: coerceRole(m.Role), Content: m.Text()})
	}
	return conv
}

// advance applies one assistant turn to st and returns the next state.
func (s *Service) advance(ctx context.Context, st loopState, turn models.AssistantTurn) loopState {
	next := loopState{
		conversation: models.CopyMessages(st.conversation),
		finalContent: st.finalContent,
		clientCalls:  append([]models.ClientCall{}, st.clientCalls...),
	}
	if strings.TrimSpace(turn.Content) != "" {
		next.finalContent = turn.Content
	}
	if len(turn.ToolCalls) == 0 {
		next.done = true
		return next
	}

	next.conversation = append(next.conversation, models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   turn.Content,
		ToolCalls: append([]models.ToolInvocation{}, turn.ToolCalls...),
	})
	for _, call := range turn.ToolCalls {
		args, err := ParseArgs(call.Name, call.Arguments)
		if err != nil {
			s.logger.Warn("tool arguments replaced with empty set",
				zap.String("tool", call.Name),
				zap.String("tool_call_id", call.ID),
				zap.Error(err))
		}

		content := toolAck
		if IsServerTool(call.Name) {
			content = s.execute(ctx, args)
		} else {
			raw, ok := clientArgs(call.Arguments)
			if !ok && err == nil {
				s.logger.Warn("client tool arguments are not an object", zap.String("tool", call.Name))
			}
			next.clientCalls = append(next.clientCalls, models.ClientCall{Name: call.Name, Args: raw})
		}
		next.conversation = append(next.conversation, models.ChatMessage{
			Role:       models.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}
	return next
}

func (s *Service) execute(ctx context.Context, args Args) string {
	var payload any
	switch a := args.(type) {
	case FetchURLArgs:
		if s.fetcher == nil {
			payload = fetch.Result{URL: a.URL, Error: fetch.ErrFetchFailed}
			break
		}
		payload = s.fetcher.Fetch(ctx, a.URL)
	case SearchWebArgs:
		if s.searcher == nil {
			payload = search.Result{Error: search.ErrUnavailable, Results: []search.Hit{}}
			break
		}
		payload = s.searcher.Search(ctx, a.Query, a.MaxResults)
	default:
		payload = map[string]string{"error": "UNKNOWN_TOOL"}
	}
	s.logger.Debug("server tool executed", zap.String("tool", args.Tool()))

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(raw)
}

func (s *Service) merge(opts Options) Options {
	if opts.Model == "" {
		opts.Model = s.defaults.Model
	}
	if opts.Temperature == nil {
		opts.Temperature = s.defaults.Temperature
	}
	if opts.MaxTokens == nil {
		opts.MaxTokens = s.defaults.MaxTokens
	}
	return opts
}

func latestUserText(history []models.IncomingMsg) string {
	for i := len(history) - 1; i >= 0; i-- {
		if coerceRole(history[i].Role) == models.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

// coerceRole keeps system, user and assistant. Anything else, tool included,
// is replayed as user text because it carries no tool_call_id.
func coerceRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case models.RoleSystem:
		return models.RoleSystem
	case models.RoleAssistant:
		return models.RoleAssistant
	}
	return models.RoleUser
}

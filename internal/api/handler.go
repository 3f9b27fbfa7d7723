package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/llm"
	"github.com/RichardoC/firmsite-copilot/internal/models"
	"github.com/RichardoC/firmsite-copilot/internal/translate"
)

const (
	maxBodyBytes = 1 << 20

	MissingKeyMessage    = "Missing OPENAI_API_KEY"
	RequestFailedMessage = "Request failed"
)

// Copilot is satisfied by *llm.Service.
type Copilot interface {
	Run(ctx context.Context, history []models.IncomingMsg, opts llm.Options) (llm.Result, error)
}

// Translator is satisfied by *translate.Pipeline.
type Translator interface {
	Run(ctx context.Context, prompt, model string) translate.Outcome
}

type Handler struct {
	cfg        config.Config
	copilot    Copilot
	translator Translator
	logger     *zap.Logger
}

// NewHandler returns the single endpoint handler. copilot may be nil when no
// completion credential is configured.
func NewHandler(cfg config.Config, copilot Copilot, translator Translator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:        cfg,
		copilot:    copilot,
		translator: translator,
		logger:     logger,
	}
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := h.logger.With(zap.String("request_id", requestID))

	setCORS(w.Header())
	w.Header().Set("X-Request-Id", requestID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("request panicked", zap.Any("panic", rec), zap.Stack("stack"))
			http.Error(w, RequestFailedMessage, http.StatusInternalServerError)
		}
	}()

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := h.parseRequest(r, logger)
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode != models.ModeTranslate {
		mode = models.ModeCopilot
	}

	if !h.hasCredential(mode) {
		logger.Error("completion credential missing", zap.String("mode", mode))
		http.Error(w, MissingKeyMessage, http.StatusInternalServerError)
		return
	}

	logger.Debug("handling request",
		zap.String("mode", mode),
		zap.Int("messages", len(req.Messages)),
		zap.String("model", req.Model))

	if mode == models.ModeTranslate {
		h.handleTranslate(w, r, req, logger)
		return
	}
	h.handleCopilot(w, r, req, logger)
}

// hasCredential reports whether mode can run. Translation needs no
// completion key when a direct provider is configured.
func (h *Handler) hasCredential(mode string) bool {
	if mode == models.ModeTranslate {
		if h.translator == nil {
			return false
		}
		return h.cfg.CompletionAPIKey != "" || h.cfg.HasDirectTranslator()
	}
	return h.cfg.CompletionAPIKey != "" && h.copilot != nil
}

// parseRequest decodes the body best effort. Invalid JSON yields an empty
// request; fields that decoded before a type mismatch are kept.
func (h *Handler) parseRequest(r *http.Request, logger *zap.Logger) models.Request {
	var req models.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("failed to read request body", zap.Error(err))
		return req
	}
	if len(body) == 0 {
		return req
	}
	if err := json.Unmarshal(body, &req); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			logger.Debug("request body is not JSON", zap.Error(err))
			return models.Request{}
		}
		logger.Debug("request body partly decoded", zap.Error(err))
	}
	return req
}

func (h *Handler) handleCopilot(w http.ResponseWriter, r *http.Request, req models.Request, logger *zap.Logger) {
	res, err := h.copilot.Run(r.Context(), req.Messages, llm.Options{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logger.Info("copilot reply",
		zap.Int("rounds", res.Rounds),
		zap.Int("client_calls", len(res.ClientCalls)))
	h.writeJSON(w, models.Response{Content: res.Content, ToolCalls: res.ClientCalls}, logger)
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request, req models.Request, logger *zap.Logger) {
	out := h.translator.Run(r.Context(), req.Prompt, req.Model)
	logger.Info("translation reply", zap.String("provider", out.Provider), zap.Int("chars", len(out.Content)))
	h.writeJSON(w, models.Response{Content: out.Content, ToolCalls: []models.ClientCall{}, Provider: out.Provider}, logger)
}

func (h *Handler) writeJSON(w http.ResponseWriter, resp models.Response, logger *zap.Logger) {
	if resp.ToolCalls == nil {
		resp.ToolCalls = []models.ClientCall{}
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, RequestFailedMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

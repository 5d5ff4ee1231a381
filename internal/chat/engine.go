// Package chat implements the interactive assistant loop: text command
// routing, retrieval-grounded question answering with streamed generation,
// and mapping of external-service failures to user-facing messages. Both the
// terminal UI and the HTTP server drive a chat.Engine.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/docsme/docsme/internal/budget"
	"github.com/docsme/docsme/internal/embedder"
	"github.com/docsme/docsme/internal/generation"
	"github.com/docsme/docsme/internal/logging"
	"github.com/docsme/docsme/internal/prompt"
	"github.com/docsme/docsme/internal/rag"
	"github.com/docsme/docsme/internal/session"
	"github.com/docsme/docsme/internal/store"
)

// ErrNotInitialized marks an engine whose knowledge base or model handle is
// missing, typically because startup wiring failed.
var ErrNotInitialized = errors.New("chat: not initialized")

// User-facing messages for external-service failures. External errors never
// escape the engine as Go errors; they become one of these replies so the
// session always continues.
const (
	// MsgQuotaExceeded is shown when a provider reports quota or rate limits.
	MsgQuotaExceeded = "The model provider's quota is exceeded. You have reached the maximum " +
		"number of requests allowed for your current plan. Please try again later."

	// MsgGenerationError is shown for any other generation failure.
	MsgGenerationError = "An error occurred while generating the response. Please try again."

	// MsgRetrievalError is shown when retrieval fails for reasons other than quota.
	MsgRetrievalError = "An error occurred while searching the knowledge base. Please try again."

	// MsgNotInitialized is shown when the knowledge base is unavailable.
	MsgNotInitialized = "The assistant is not initialized. Please restart the session."

	// MsgNoFiles is shown by the files command when the store is empty.
	MsgNoFiles = "No files found in the knowledge base."
)

const helpText = `Commands:

File management:
  show files       list uploaded documents
  (use the ingest command or the documents API to upload PDF/TXT/MD files)

Model settings:
  settings                  show current generation settings
  set temperature <0..1>    sampling randomness
  set top_p <0..1>          nucleus-sampling threshold
  set top_k <1..50>         top-k sampling
  set max_tokens <n>        answer length cap
  reset settings            restore defaults

Anything else is treated as a question about your documents.`

// Config holds the tunable parameters of an Engine.
type Config struct {
	// SessionID keys persisted transcript rows. Empty disables persistence.
	SessionID string

	// TopN is the number of passages retrieved per question. Defaults to 5.
	TopN int

	// MaxContextTokens bounds the grounding context size. Zero means the
	// budget package default.
	MaxContextTokens int

	// GenerateTimeout bounds one full generation stream. Defaults to 60s.
	GenerateTimeout time.Duration
}

// Engine routes chat input to commands or the retrieval-generation pipeline
// and owns the session's mutable generation settings. Not safe for
// concurrent use; each session gets its own Engine.
type Engine struct {
	retriever rag.Retriever
	docs      rag.VectorStore
	generator generation.Generator
	history   store.TranscriptStore

	settings session.Config
	cfg      Config
}

// NewEngine constructs an Engine. history may be nil to disable transcript
// persistence.
func NewEngine(retriever rag.Retriever, docs rag.VectorStore, generator generation.Generator, history store.TranscriptStore, cfg Config) (*Engine, error) {
	if retriever == nil || docs == nil || generator == nil {
		return nil, ErrNotInitialized
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 60 * time.Second
	}
	return &Engine{
		retriever: retriever,
		docs:      docs,
		generator: generator,
		history:   history,
		settings:  session.Defaults(),
		cfg:       cfg,
	}, nil
}

// Settings returns the session's current generation settings.
func (e *Engine) Settings() session.Config {
	return e.settings
}

// Welcome returns the greeting shown when a session starts.
func (e *Engine) Welcome() string {
	return "Welcome to your document assistant. Upload documents (PDF, TXT, MD) " +
		"and ask questions about them.\n\n" +
		"Type `help` for commands, `show files` to see uploaded documents."
}

// HandleMessage processes one line of user input and returns the complete
// reply. For natural-language questions the answer is additionally streamed
// through emit as it is generated; emit may be nil. External-service failures
// are returned as user-facing reply text, never as errors — the only errors
// escaping here are context cancellation.
func (e *Engine) HandleMessage(ctx context.Context, input string, emit func(string) error) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	switch strings.ToLower(trimmed) {
	case "show files", "list files", "files":
		return e.listFiles(ctx), nil

	case "reset", "reset settings", "default settings":
		e.settings.Reset()
		return "Model settings reset to defaults.", nil

	case "help", "commands":
		return helpText, nil

	case "settings":
		return "Current settings: " + e.settings.String(), nil
	}

	if reply, ok := e.handleSet(trimmed); ok {
		return reply, nil
	}

	return e.answer(ctx, trimmed, emit)
}

// listFiles returns the deduplicated, sorted source names in the store.
func (e *Engine) listFiles(ctx context.Context) string {
	records, err := e.docs.ListAll(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("listing files failed", slog.Any("error", err))
		return MsgNotInitialized
	}
	names := rag.DistinctSources(records)
	if len(names) == 0 {
		return MsgNoFiles
	}
	return "Files in your knowledge base:\n" + strings.Join(names, "\n")
}

// handleSet parses `set <param> <value>` commands. Returns ok=false when the
// input is not a set command at all.
func (e *Engine) handleSet(input string) (string, bool) {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 || fields[0] != "set" {
		return "", false
	}
	if len(fields) != 3 {
		return "Usage: set <temperature|top_p|top_k|max_tokens> <value>", true
	}

	param, raw := fields[1], fields[2]
	switch param {
	case "temperature", "top_p":
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return fmt.Sprintf("Invalid value %q for %s.", raw, param), true
		}
		if param == "temperature" {
			e.settings.SetTemperature(float32(v))
		} else {
			e.settings.SetTopP(float32(v))
		}
	case "top_k", "topk":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Sprintf("Invalid value %q for top_k.", raw), true
		}
		e.settings.SetTopK(v)
	case "max_tokens", "max_output_tokens":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Sprintf("Invalid value %q for max_tokens.", raw), true
		}
		e.settings.SetMaxOutputTokens(v)
	default:
		return fmt.Sprintf("Unknown setting %q. Valid: temperature, top_p, top_k, max_tokens.", param), true
	}

	return "Settings updated: " + e.settings.String(), true
}

// answer runs the retrieval-generation pipeline for one question.
func (e *Engine) answer(ctx context.Context, question string, emit func(string) error) (string, error) {
	log := logging.FromContext(ctx)

	records, err := e.retriever.Retrieve(ctx, question, e.cfg.TopN)
	if err != nil {
		log.Error("retrieval failed", slog.Any("error", err))
		if embedder.IsQuota(err) {
			return MsgQuotaExceeded, nil
		}
		return MsgRetrievalError, nil
	}

	passages := make([]string, len(records))
	for i, r := range records {
		passages[i] = r.Content
	}
	passages = budget.TrimPassages(passages, e.cfg.MaxContextTokens)

	p := prompt.Build(question, passages)

	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()

	sr, err := e.generator.Stream(genCtx, p, generation.Params{
		Temperature:     e.settings.Temperature,
		TopP:            e.settings.TopP,
		TopK:            e.settings.TopK,
		MaxOutputTokens: e.settings.MaxOutputTokens,
	})
	if err != nil {
		log.Error("generation failed", slog.Any("error", err))
		if embedder.IsQuota(err) {
			return MsgQuotaExceeded, nil
		}
		return MsgGenerationError, nil
	}

	full, err := generation.Collect(sr, emit)
	if err != nil {
		// Context cancellation propagates so the caller can tell an
		// aborted session from a provider failure.
		if ctx.Err() != nil {
			return full, ctx.Err()
		}
		log.Error("stream interrupted", slog.Any("error", err))
		if embedder.IsQuota(err) {
			return full + "\n" + MsgQuotaExceeded, nil
		}
		return full + "\n" + MsgGenerationError, nil
	}

	e.persistTurn(ctx, question, full)
	return full, nil
}

// persistTurn writes both sides of a completed exchange to the transcript
// store. Persistence failures are logged, never surfaced.
func (e *Engine) persistTurn(ctx context.Context, question, answer string) {
	if e.history == nil || e.cfg.SessionID == "" {
		return
	}
	log := logging.FromContext(ctx)
	if err := e.history.Append(ctx, e.cfg.SessionID, store.RoleUser, question); err != nil {
		log.Warn("history: failed to persist user message", slog.Any("error", err))
	}
	if err := e.history.Append(ctx, e.cfg.SessionID, store.RoleAssistant, answer); err != nil {
		log.Warn("history: failed to persist assistant message", slog.Any("error", err))
	}
}

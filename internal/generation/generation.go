// Package generation streams answers from the configured language model.
// Backends are built on the eino ChatModel abstraction so Gemini, Ollama,
// OpenAI, and Azure OpenAI are interchangeable behind one interface.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/schema"
)

// Generator streams a completion for an assembled prompt using the given
// session parameters. Implementations must be safe for concurrent use.
type Generator interface {
	// Stream starts generation and returns a reader of message increments.
	// The caller owns the reader and must Close it.
	Stream(ctx context.Context, prompt string, p Params) (*schema.StreamReader[*schema.Message], error)
}

// Params are the per-request generation parameters. TopK is honored by the
// Gemini backend only; the other backends apply temperature, top-p, and the
// output token cap.
type Params struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// Collect consumes a stream to completion, invoking emit for every non-empty
// text increment and returning the concatenated answer. The reader is always
// closed. A nil emit collects without forwarding.
func Collect(sr *schema.StreamReader[*schema.Message], emit func(string) error) (string, error) {
	defer sr.Close()

	var full []byte
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return string(full), fmt.Errorf("generation: stream receive: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		full = append(full, msg.Content...)
		if emit != nil {
			if err := emit(msg.Content); err != nil {
				return string(full), fmt.Errorf("generation: emit: %w", err)
			}
		}
	}
	return string(full), nil
}

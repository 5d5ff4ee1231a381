// Package chunker splits extracted document text into overlapping chunks
// sized for embedding. The splitter works recursively over a separator
// hierarchy (paragraphs, then lines, then words, then characters) so chunks
// break at the most natural boundary available.
package chunker

import (
	"fmt"
	"strings"
)

// Default splitting parameters.
const (
	// DefaultMaxLen is the maximum chunk length in characters.
	DefaultMaxLen = 1000
	// DefaultOverlap is the number of characters shared between adjacent chunks.
	DefaultOverlap = 200
	// DefaultMinUsable is the length a chunk must exceed to be kept.
	// Shorter fragments carry too little context to be worth embedding.
	DefaultMinUsable = 50
)

// separators is the boundary hierarchy, coarsest first. The empty string is
// the last resort: split between arbitrary characters.
var separators = []string{"\n\n", "\n", " ", ""}

// Config holds the splitting parameters.
type Config struct {
	// MaxLen is the maximum chunk length in characters.
	MaxLen int
	// Overlap is the number of characters shared between adjacent chunks.
	Overlap int
	// MinUsable is the length a chunk must exceed to be kept.
	MinUsable int
}

// DefaultConfig returns the standard splitting parameters.
func DefaultConfig() Config {
	return Config{
		MaxLen:    DefaultMaxLen,
		Overlap:   DefaultOverlap,
		MinUsable: DefaultMinUsable,
	}
}

// Splitter splits text into overlapping chunks.
type Splitter struct {
	cfg Config
}

// New constructs a Splitter, validating the config.
func New(cfg Config) (*Splitter, error) {
	if cfg.MaxLen <= 0 {
		return nil, fmt.Errorf("chunker: MaxLen must be positive, got %d", cfg.MaxLen)
	}
	if cfg.Overlap < 0 {
		return nil, fmt.Errorf("chunker: Overlap must not be negative, got %d", cfg.Overlap)
	}
	if cfg.Overlap >= cfg.MaxLen {
		return nil, fmt.Errorf("chunker: Overlap (%d) must be smaller than MaxLen (%d)", cfg.Overlap, cfg.MaxLen)
	}
	if cfg.MinUsable < 0 {
		return nil, fmt.Errorf("chunker: MinUsable must not be negative, got %d", cfg.MinUsable)
	}
	return &Splitter{cfg: cfg}, nil
}

// Split breaks text into chunks of at most MaxLen characters with Overlap
// characters shared between neighbours. Chunks of MinUsable characters or
// fewer are dropped. Whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []string {
	raw := s.split(text, separators)

	kept := make([]string, 0, len(raw))
	for _, c := range raw {
		trimmed := strings.TrimSpace(c)
		if len(trimmed) > s.cfg.MinUsable {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

// split recursively divides text at the coarsest separator that applies,
// then merges the pieces back into chunks no longer than MaxLen.
func (s *Splitter) split(text string, seps []string) []string {
	if text == "" {
		return nil
	}

	// Pick the first separator that occurs in the text; "" always matches.
	sep := seps[len(seps)-1]
	rest := seps
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitEvery(text, s.cfg.MaxLen)
	} else {
		pieces = strings.Split(text, sep)
	}

	// Pieces still longer than MaxLen descend to finer separators; the rest
	// are merged greedily into chunks with overlap carried between them.
	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if len(piece) <= s.cfg.MaxLen {
			pending = append(pending, piece)
			continue
		}
		chunks = append(chunks, s.merge(pending, sep)...)
		pending = nil
		chunks = append(chunks, s.split(piece, rest)...)
	}
	chunks = append(chunks, s.merge(pending, sep)...)
	return chunks
}

// merge joins pieces with sep into chunks of at most MaxLen characters,
// carrying Overlap characters of trailing context into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		joined := strings.Join(window, sep)
		if strings.TrimSpace(joined) != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if total+pieceLen+len(sep)*len(window) > s.cfg.MaxLen && len(window) > 0 {
			flush()
			// Retain trailing pieces within the overlap budget, and keep
			// trimming while the retained window plus the incoming piece
			// would still exceed MaxLen.
			for len(window) > 0 && (total > s.cfg.Overlap ||
				(total+pieceLen+len(sep)*len(window) > s.cfg.MaxLen && total > 0)) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += pieceLen
	}
	flush()
	return chunks
}

// splitEvery cuts s into consecutive pieces of at most n bytes.
func splitEvery(text string, n int) []string {
	var out []string
	for len(text) > n {
		out = append(out, text[:n])
		text = text[n:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

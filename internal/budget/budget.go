// Package budget provides token estimation and passage trimming for the
// grounding context. Because the assistant supports multiple generation
// backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose).
// This deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for retrieved passages.
	// Small models paired with a 128-token output default leave no reason to
	// ship more than a few thousand tokens of grounding context.
	DefaultMaxContextTokens = 4000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// TrimPassages drops the least relevant passages (from the tail, since the
// retriever orders most-relevant-first) until the estimated total fits within
// maxTokens. The most relevant passage is always kept, even when it alone
// exceeds the budget, so the prompt is never emptied by an oversized chunk.
func TrimPassages(passages []string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}

	total := 0
	for i, p := range passages {
		total += Estimate(p)
		if total > maxTokens && i > 0 {
			return passages[:i]
		}
	}
	return passages
}

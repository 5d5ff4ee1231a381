// Package prompt assembles the grounded prompt sent to the generation model:
// the user question plus retrieved passages normalized into a single context
// block, with instructions keeping the answer inside that context.
package prompt

import "strings"

// OutOfContextMarker is the token the model is instructed to emit when the
// question is unrelated to the retrieved context.
const OutOfContextMarker = "OUT OF CONTEXT"

// Build combines the user question with the retrieved passages into the
// final prompt. Passages are joined most-relevant-first with blank lines,
// then normalized: quote characters are stripped and newlines collapsed to
// spaces so passage formatting cannot smuggle instructions into the prompt.
//
// With no passages (empty store or empty retrieval) the prompt explicitly
// tells the model that no context exists instead of sending an empty context
// block, so the model asks for a document rather than inventing an answer.
func Build(question string, passages []string) string {
	context := strings.TrimSpace(normalize(strings.Join(passages, "\n\n")))

	if context == "" {
		return "Question: " + question + "\n\n" +
			"I don't have any relevant context to answer this question. " +
			"Please upload a document first.\n\n" +
			"Your answer:\n"
	}

	return "Question: " + question + "\n\n" +
		"Context:\n" + context + "\n\n" +
		"Instructions: Answer the question based on the provided context. " +
		"If the question is not related to the context, respond with '" + OutOfContextMarker + "'. " +
		"Be concise and accurate.\n\n" +
		"Your answer:\n"
}

// normalize strips quote characters and flattens newlines to spaces.
var normalizer = strings.NewReplacer(
	"'", "",
	`"`, "",
	"\r\n", " ",
	"\n", " ",
)

func normalize(s string) string {
	return normalizer.Replace(s)
}

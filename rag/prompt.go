package rag

import (
	"fmt"
	"strings"
)

// ============================================================================
// PROMPT BUILDER — Grounded question answering over retrieved rows
// ============================================================================

// SystemPrompt instructs the model to answer only from the supplied rows.
const SystemPrompt = `You answer questions about a sales dataset.
Each context line is one row of the dataset.
Use ONLY the context rows to answer. Do not invent rows, products, countries or amounts.
If the context does not contain the answer, reply exactly: I don't know.
Answer in one or two short sentences. Do not explain your reasoning.`

// BuildPrompt renders the retrieved rows and the question into the user prompt.
func BuildPrompt(question string, hits []ScoredChunk) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for i, h := range hits {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(h.Content))
	}
	b.WriteString("\nQUESTION: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nANSWER:")
	return b.String()
}

// CleanAnswer strips markdown fences and a leading "Answer:" label.
func CleanAnswer(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	for _, label := range []string{"ANSWER:", "Answer:", "answer:"} {
		if strings.HasPrefix(response, label) {
			response = strings.TrimSpace(strings.TrimPrefix(response, label))
			break
		}
	}
	return response
}

// IsUnknown reports whether the model declined to answer.
func IsUnknown(answer string) bool {
	a := strings.ToLower(strings.TrimRight(strings.TrimSpace(answer), "."))
	return a == "" || a == "i don't know" || a == "i do not know"
}

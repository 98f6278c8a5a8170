package query

import (
	"strings"
)

// SystemPrompt constrains the model to the retrieved context.
const SystemPrompt = "You answer questions using only the provided context."

// ContextBlock renders contexts as "- text" items separated by blank lines, in order.
func ContextBlock(contexts []string) string {
	items := make([]string, len(contexts))
	for i, c := range contexts {
		items[i] = "- " + c
	}
	return strings.Join(items, "\n\n")
}

// UserPrompt wraps the context block and the question.
func UserPrompt(question string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the question.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(ContextBlock(contexts))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer concisely using the context above.")
	return b.String()
}

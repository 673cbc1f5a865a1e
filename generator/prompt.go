package generator

import "strings"

const (
	contextHeader  = "Document context:\n"
	questionHeader = "\n\nQuestion: "
)

// BuildPrompt renders the user turn sent alongside the system instruction.
func BuildPrompt(context, question string) string {
	return contextHeader + context + questionHeader + question
}

// ParsePrompt reverses BuildPrompt. Prompts in any other shape come back
// whole as the context.
func ParsePrompt(prompt string) (context string, question string) {
	body := strings.TrimPrefix(prompt, contextHeader)

	idx := strings.LastIndex(body, questionHeader)
	if idx < 0 {
		return body, ""
	}

	return body[:idx], body[idx+len(questionHeader):]
}

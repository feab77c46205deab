package qa

import (
	"fmt"
	"strings"
)

const systemPrompt = `You answer questions about lecture recordings.
Answer using ONLY the numbered context passages. If the context does not contain the answer, say so.
Cite passages inline with their numbers in square brackets, for example [1] or [2][3].
Respond with JSON only: {"answer": string, "answer_markdown": string, "cited": [numbers of the passages you used]}.`

// BuildPrompt renders the system and user prompts for question over sources.
func BuildPrompt(question string, sources []Source) (string, string) {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nContext:\n")
	for i, source := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(contextEntry(source))
	}
	b.WriteString("\n")
	return systemPrompt, b.String()
}

func contextEntry(source Source) string {
	text := strings.TrimSpace(source.text)
	if text == "" {
		text = source.Excerpt
	}
	return fmt.Sprintf("[%d] %s %s", source.ID, source.Title, text)
}

package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt flattens a request for providers that take a single prompt string
func BuildPrompt(req Request) string {
	if req.System == "" {
		return req.Prompt
	}
	return fmt.Sprintf("%s\n\n%s", req.System, req.Prompt)
}

// CleanText normalizes a short completion: surrounding whitespace, a markdown
// code fence and matching outer quotes are removed.
func CleanText(content string) string {
	text := strings.TrimSpace(content)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl != -1 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	for len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			text = strings.TrimSpace(text[1 : len(text)-1])
			continue
		}
		break
	}

	return text
}

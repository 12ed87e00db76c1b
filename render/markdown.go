package render

import (
	"strings"

	"chatsnip/types"
)

var markdownNameEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
)

// Markdown renders messages as a block-quoted transcript:
//
//	> **You**: question
//	>
//	> **GPT-4**: answer
//	> second line of the answer
//
// Messages are separated by one bare ">" line; nothing follows the last message.
func Markdown(messages []types.Message, assistantName string) string {
	assistantName = displayName(assistantName)

	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		name := markdownNameEscaper.Replace(msg.Speaker(assistantName))
		body := strings.ReplaceAll(normalizeNewlines(msg.Content), "\n", "\n> ")
		blocks = append(blocks, "> **"+name+"**: "+body)
	}

	return canonicalizeQuoteLines(strings.Join(blocks, "\n>\n"))
}

// canonicalizeQuoteLines rewrites blank quote lines to a bare ">", collapses
// runs of them to one and drops any at the end
func canonicalizeQuoteLines(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == ">" {
			if len(out) > 0 && out[len(out)-1] == ">" {
				continue
			}
			line = ">"
		}
		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == ">" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

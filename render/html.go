package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"chatsnip/types"
)

// Stylesheet is appended once after the chat container
const Stylesheet = `<style>
  .chat-container {
    font-family: system-ui, -apple-system, BlinkMacSystemFont, sans-serif;
    max-width: 800px;
    margin: 0 auto;
    padding: 20px;
  }
  .chat-row {
    display: flex;
    flex-direction: column;
    margin-bottom: 16px;
    align-items: flex-start;
  }
  .chat-row.user {
    align-items: flex-end;
  }
  .chat-name {
    font-size: 12px;
    color: #666;
    margin-bottom: 4px;
  }
  .chat-bubble {
    padding: 12px 16px;
    border-radius: 18px;
    max-width: 80%;
    background-color: #f0f0f0;
    white-space: pre-wrap;
  }
  .chat-bubble.user {
    background-color: #1e88e5;
    color: white;
  }
  .chat-bubble.agent {
    background-color: #f0f0f0;
    color: #333;
  }
</style>`

// markupPolicy is the allowlist the rendered container must satisfy: plain
// divs carrying our own class names. Anything else is stripped.
var markupPolicy = newMarkupPolicy()

func newMarkupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^chat-[a-z]+(?: (?:user|agent))?$`)).OnElements("div")
	return p
}

// HTML renders messages as chat bubbles. Message text and the assistant name
// are escaped, so pasted markup shows up as text.
func HTML(messages []types.Message, assistantName string) string {
	assistantName = displayName(assistantName)

	var b strings.Builder
	b.WriteString("<div class=\"chat-container\">\n")
	for _, msg := range messages {
		rowClass, bubbleClass := "chat-row", "chat-bubble agent"
		if msg.IsUser {
			rowClass, bubbleClass = "chat-row user", "chat-bubble user"
		}

		b.WriteString("  <div class=\"" + rowClass + "\">\n")
		b.WriteString("    <div class=\"chat-name\">" + html.EscapeString(msg.Speaker(assistantName)) + "</div>\n")
		b.WriteString("    <div class=\"" + bubbleClass + "\">" + html.EscapeString(normalizeNewlines(msg.Content)) + "</div>\n")
		b.WriteString("  </div>\n")
	}
	b.WriteString("</div>\n")

	return markupPolicy.Sanitize(b.String()) + Stylesheet
}

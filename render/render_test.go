package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsnip/parser"
	"chatsnip/types"
)

func twoTurns() []types.Message {
	return []types.Message{
		{IsUser: true, Content: "What is Go?"},
		{IsUser: false, Content: "Go is a language.\nIt has goroutines."},
	}
}

func TestHTMLStructure(t *testing.T) {
	out := HTML(twoTurns(), "GPT-4")

	expected := "<div class=\"chat-container\">\n" +
		"  <div class=\"chat-row user\">\n" +
		"    <div class=\"chat-name\">You</div>\n" +
		"    <div class=\"chat-bubble user\">What is Go?</div>\n" +
		"  </div>\n" +
		"  <div class=\"chat-row\">\n" +
		"    <div class=\"chat-name\">GPT-4</div>\n" +
		"    <div class=\"chat-bubble agent\">Go is a language.\nIt has goroutines.</div>\n" +
		"  </div>\n" +
		"</div>\n" + Stylesheet

	assert.Equal(t, expected, out)
	assert.Equal(t, 1, strings.Count(out, "<style>"), "stylesheet must be appended exactly once")
}

func TestHTMLEscapesInjectedMarkup(t *testing.T) {
	payload := `<img src=x onerror="alert(1)"><script>alert('x')</script>`
	conv, err := parser.ClassifyConversation("You: " + payload + "\n\nChatGPT: <b>bold</b> & more")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)

	out, err := Render(conv, `<i>Evil</i> "Bot"`, FormatHTML)
	require.NoError(t, err)

	body := strings.TrimSuffix(out, Stylesheet)
	assert.NotContains(t, body, "<img")
	assert.NotContains(t, body, "<script")
	assert.NotContains(t, body, "<b>")
	assert.NotContains(t, body, "<i>")
	assert.Contains(t, body, "&lt;img src=x onerror=&#34;alert(1)&#34;&gt;")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "&amp; more")
	assert.Contains(t, body, "&lt;i&gt;Evil&lt;/i&gt;")
}

func TestHTMLEmptyAndBlankName(t *testing.T) {
	assert.Equal(t, "<div class=\"chat-container\">\n</div>\n"+Stylesheet, HTML(nil, "GPT-4"))

	out := HTML([]types.Message{{IsUser: false, Content: "hi"}}, "   ")
	assert.Contains(t, out, "<div class=\"chat-name\">"+types.FallbackAssistantName+"</div>")
}

func TestMarkdown(t *testing.T) {
	out := Markdown(twoTurns(), "GPT-4")

	assert.Equal(t, "> **You**: What is Go?\n>\n> **GPT-4**: Go is a language.\n> It has goroutines.", out)
}

func TestMarkdownSeparators(t *testing.T) {
	out := Markdown([]types.Message{
		{IsUser: true, Content: "first"},
		{IsUser: false, Content: "second"},
	}, "Claude 3 Opus")

	lines := strings.Split(out, "\n")
	separators := 0
	for _, line := range lines {
		if line == ">" {
			separators++
		}
	}
	assert.Equal(t, 1, separators)
	assert.NotEqual(t, ">", lines[len(lines)-1])
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestMarkdownBlankLinesInsideContent(t *testing.T) {
	out := Markdown([]types.Message{
		{IsUser: false, Content: "para one\n\n\n\npara two\r\n  \r\nthree"},
		{IsUser: true, Content: "ok"},
	}, "Gemini 1.5 Pro")

	assert.Equal(t, "> **Gemini 1.5 Pro**: para one\n>\n> para two\n>\n> three\n>\n> **You**: ok", out)
	assert.NotContains(t, out, ">\n>\n")
}

func TestMarkdownEscapesName(t *testing.T) {
	out := Markdown([]types.Message{{IsUser: false, Content: "hi"}}, "my_*bot*")
	assert.Equal(t, `> **my\_\*bot\***: hi`, out)
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", Markdown(nil, "GPT-4"))
}

func TestCanonicalizeQuoteLines(t *testing.T) {
	assert.Equal(t, "> a\n>\n> b", canonicalizeQuoteLines("> a\n> \n>\n>  \n> b\n>\n>"))
	assert.Equal(t, "", canonicalizeQuoteLines(""))
}

func TestRenderDeterministic(t *testing.T) {
	conv := types.Conversation{Messages: twoTurns()}

	for _, format := range Formats {
		first, err := Render(conv, "GPT-4", format)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Render(conv, "GPT-4", format)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	_, err := Render(types.Conversation{}, "GPT-4", Format("pdf"))
	assert.True(t, errors.Is(err, types.ErrUnsupportedFormat))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"html", FormatHTML, false},
		{" HTML ", FormatHTML, false},
		{"", FormatHTML, false},
		{"markdown", FormatMarkdown, false},
		{"MD", FormatMarkdown, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.True(t, errors.Is(err, types.ErrUnsupportedFormat), tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

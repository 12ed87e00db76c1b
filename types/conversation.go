package types

import "errors"

// ErrNoUsableText is returned when the raw input is empty or whitespace only.
// Callers are expected to prompt for text instead of rendering anything.
var ErrNoUsableText = errors.New("no usable text provided")

// ErrUnsupportedFormat is returned when a render format is not recognized
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Message is one inferred turn of a pasted conversation
type Message struct {
	IsUser  bool   `json:"isUser"`
	Content string `json:"content"`
}

// Speaker returns the display name for this message
func (m Message) Speaker(assistantName string) string {
	if m.IsUser {
		return UserDisplayName
	}
	return assistantName
}

// Role returns "user" or "assistant"
func (m Message) Role() string {
	if m.IsUser {
		return "user"
	}
	return "assistant"
}

// Conversation is the ordered result of classifying one blob of text.
// Strategy records which classifier strategy produced the messages.
type Conversation struct {
	Messages []Message `json:"messages"`
	Strategy string    `json:"strategy,omitempty"`
}

// Len returns the number of messages
func (c Conversation) Len() int {
	return len(c.Messages)
}

// IsEmpty reports whether the conversation holds no messages
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// UserMessageCount counts messages attributed to the user
func (c Conversation) UserMessageCount() int {
	count := 0
	for _, msg := range c.Messages {
		if msg.IsUser {
			count++
		}
	}
	return count
}

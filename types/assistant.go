package types

import "strings"

const (
	// UserDisplayName is shown for every user-authored message
	UserDisplayName = "You"

	// CustomAssistantOption is the selector value that switches to a free-text name
	CustomAssistantOption = "Custom"

	// DefaultAssistantName is the preselected model label
	DefaultAssistantName = "ChatGPT-4o"

	// FallbackAssistantName is used when a custom name was chosen but left blank
	FallbackAssistantName = "Assistant"
)

// KnownAssistantNames lists the model labels offered by the export UI, in display order
var KnownAssistantNames = []string{
	"ChatGPT-4o",
	"GPT-4",
	"Claude 3 Opus",
	"Gemini 1.5 Pro",
}

// IsKnownAssistantName reports whether name is one of the built-in labels (case-insensitive)
func IsKnownAssistantName(name string) bool {
	name = strings.TrimSpace(name)
	for _, known := range KnownAssistantNames {
		if strings.EqualFold(known, name) {
			return true
		}
	}
	return false
}

// ResolveAssistantName turns a UI selection into the display name used for rendering.
// Selecting "Custom" uses customName; any other selection is used verbatim.
func ResolveAssistantName(selection, customName string) string {
	selection = strings.TrimSpace(selection)
	if strings.EqualFold(selection, CustomAssistantOption) {
		selection = strings.TrimSpace(customName)
	}
	if selection == "" {
		return FallbackAssistantName
	}
	return selection
}

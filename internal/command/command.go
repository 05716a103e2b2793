// ABOUTME: Parses chat message text into a command name and arguments
// ABOUTME: Handles the configured prefix and strips @bot mention suffixes

// Package command turns raw message text into bot invocations.
package command

import "strings"

// DefaultPrefix marks a message as a command when no prefix is configured.
const DefaultPrefix = "/"

// Parsed is a command name with its whitespace-separated arguments.
type Parsed struct {
	Name string
	Args []string
}

// Parse extracts a command from text. It returns false for text that does not
// start with prefix or carries no command name. Names are lowercased; a
// "@botname" suffix on the name is dropped ("/spam@bot" is "spam").
func Parse(text, prefix string) (Parsed, bool) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, prefix) {
		return Parsed{}, false
	}

	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Parsed{}, false
	}

	name := fields[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Parsed{}, false
	}

	args := fields[1:]
	if len(args) == 0 {
		args = nil
	}
	return Parsed{Name: strings.ToLower(name), Args: args}, true
}

package command

import "strings"

// ParseResult is a chat line split into command and arguments.
type ParseResult struct {
	// Command is the lowercased first word without its slash.
	Command string
	// Args are the remaining whitespace-separated words, case preserved.
	Args []string
	// Line is the trimmed input.
	Line string
}

// Parse splits a chat line such as "/furni hide red chair". The leading
// slash is optional and any run of whitespace separates words.
//
// Postcondition: Command is empty when the line holds no command word.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	words := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(words) == 0 {
		return ParseResult{Line: line}
	}
	res := ParseResult{Command: strings.ToLower(words[0]), Line: line}
	if len(words) > 1 {
		res.Args = words[1:]
	}
	return res
}

// Package telnet serves the furni chat commands to remote Telnet clients.
// Each connection gets its own command session whose replies, including
// those of background pickups, are written back to that connection.
package telnet

import "strings"

// ANSI escape codes used to highlight console replies.
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Colorize wraps text with color and a reset suffix.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Highlight colors a command reply by its kind: warnings yellow, refusals
// red, operation progress cyan. Other replies are returned unchanged.
func Highlight(msg string) string {
	switch {
	case strings.HasPrefix(msg, "[Warning]"):
		return Colorize(Yellow, msg)
	case strings.HasPrefix(msg, "Unknown command"),
		strings.HasPrefix(msg, "You must"),
		strings.HasPrefix(msg, "Failed"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "does not support"):
		return Colorize(Red, msg)
	case strings.HasPrefix(msg, "Picking up"),
		strings.HasPrefix(msg, "Cancelled"):
		return Colorize(Cyan, msg)
	default:
		return msg
	}
}

// StripANSI removes \033[...m sequences from s.
func StripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			if end := strings.IndexByte(s[i:], 'm'); end >= 0 {
				i += end
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

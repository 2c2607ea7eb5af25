package chat

import (
	"regexp"
	"strings"
)

// Patterns for embedded task blocks that must never reach the user.
var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?i)```json\\s*\\[[\\s\\S]+?\\]\\s*```"),
	regexp.MustCompile("```\\s*\\[[\\s\\S]+?\\]\\s*```"),
	regexp.MustCompile(`(?i)Suggested task block:\s*\[[\s\S]+?\]`),
}

var excessBlankLines = regexp.MustCompile(`\n\s*\n\s*\n`)

// CleanResponse produces the user-visible text: structured task blocks
// removed and runs of blank lines collapsed to a single one.
func CleanResponse(text string) string {
	cleaned := text
	for _, pattern := range stripPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = excessBlankLines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// Package extract provides the pure text-scanning utilities of the
// enrichment pipeline: work item references and stack traces.
package extract

import (
	"regexp"
	"strconv"
)

// Pre-compiled patterns for reference extraction.
var (
	// linkPattern matches #123 short references. The leading class
	// rejects word characters and slashes so numbers inside URLs
	// (".../path#123") and longer identifiers ("issue#123") don't match.
	linkPattern = regexp.MustCompile(`(?:^|[^\w/&])#(\d+)\b`)

	// Code spans are stripped first so example references in code
	// snippets are not picked up.
	fencedCodePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")
)

// Links returns the item numbers referenced in text via #N notation,
// deduplicated and in first-seen order. Pure function: same input,
// same output.
func Links(text string) []int {
	text = fencedCodePattern.ReplaceAllString(text, "")
	text = inlineCodePattern.ReplaceAllString(text, "")

	var numbers []int
	seen := make(map[int]bool)

	for _, match := range linkPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n <= 0 {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	return numbers
}

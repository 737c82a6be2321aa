package extract

import (
	"regexp"
	"sort"
	"unicode/utf8"
)

const (
	// maxStackTraces bounds the entries returned, to bound prompt size.
	maxStackTraces = 3
	// maxStackTraceLen bounds each entry in characters.
	maxStackTraceLen = 500
)

// StackTrace is a verbatim substring of the scanned text that matched a
// known failure-report format. Format is a best-effort tag, not
// authoritative.
type StackTrace struct {
	Text   string
	Format string
}

// tracePatterns describe the structural shapes of common failure
// reports. Matching is best-effort: a missed trace is acceptable, a
// fabricated one is not, so every pattern anchors on an explicit
// header line.
var tracePatterns = []struct {
	format  string
	pattern *regexp.Regexp
}{
	{
		// Header line followed by indented frames and a final error line.
		format:  "python",
		pattern: regexp.MustCompile(`(?m)^Traceback \(most recent call last\):\n(?:[ \t]+.*\n?)+(?:\S.*)?`),
	},
	{
		// "TypeError: message" followed by "at location" frames.
		format:  "javascript",
		pattern: regexp.MustCompile(`(?m)^[ \t]*\w*(?:Error|Exception): .*\n(?:[ \t]+at .+\n?)+`),
	},
	{
		// Dotted exception class, optional message, "at" frames.
		format:  "java",
		pattern: regexp.MustCompile(`(?m)^[ \t]*(?:Exception in thread ".+" )?[\w.$]+\.[\w$]*(?:Exception|Error)(?::.*)?\n(?:[ \t]+at .+\n?)+`),
	},
	{
		format:  "go",
		pattern: regexp.MustCompile(`(?m)^panic: .+\n+goroutine \d+ \[[^\]]*\]:\n(?:.+\n?)+`),
	},
}

type traceMatch struct {
	start, end int
	format     string
}

// StackTraces scans text for contiguous substrings matching any known
// failure-report format. At most maxStackTraces entries are returned,
// each truncated to maxStackTraceLen characters; every entry is a
// verbatim substring of the input.
func StackTraces(text string) []StackTrace {
	var matches []traceMatch
	for _, tp := range tracePatterns {
		for _, loc := range tp.pattern.FindAllStringIndex(text, -1) {
			matches = append(matches, traceMatch{start: loc[0], end: loc[1], format: tp.format})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	// Earlier and longer matches win when patterns overlap.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].start != matches[j].start {
			return matches[i].start < matches[j].start
		}
		return matches[i].end > matches[j].end
	})

	var traces []StackTrace
	lastEnd := -1
	for _, m := range matches {
		if m.start < lastEnd {
			continue
		}
		raw := text[m.start:m.end]
		if len(raw) > maxStackTraceLen {
			// Back off to a rune boundary so the cut never emits an
			// invalid UTF-8 tail.
			cut := maxStackTraceLen
			for cut > 0 && !utf8.RuneStart(raw[cut]) {
				cut--
			}
			raw = raw[:cut]
		}
		traces = append(traces, StackTrace{Text: raw, Format: m.format})
		lastEnd = m.end
		if len(traces) == maxStackTraces {
			break
		}
	}
	return traces
}

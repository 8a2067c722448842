package reconcile

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Pattern-based recovery of tool calls from an unstructured trace
// rendering. Best effort by design: the patterns cover renderings seen in
// existing agent logs and are not exhaustive. Fields that cannot be
// recovered stay empty; nothing is guessed.

// RecoveredCall is one tool call mined out of free-form text.
type RecoveredCall struct {
	ID           string
	Name         string
	ArgsFragment string
	Arguments    map[string]any
}

var (
	callMarkerRe = regexp.MustCompile(`(?i)\btool[_ ]?call\b|\binvoking\b|\bcalling tool\b`)
	// Key-value recognizers require an explicit : or = separator so the
	// words inside the markers themselves ("tool call") never bind as keys.
	callIDRe   = regexp.MustCompile(`(?i)\b(?:corr_id|call_id|id)["'\s]*[:=]["'\s]*([A-Za-z0-9-]{4,})`)
	callNameRe = regexp.MustCompile("(?i)\\b(?:name|tool)[\"'\\s]*[:=][\"'\\s`]*([A-Za-z0-9_.:-]+)")
)

// ExtractCalls scans text for recognizable call markers and recovers a
// call identifier, name, and argument fragment from each marked region.
func ExtractCalls(text string) []RecoveredCall {
	markers := callMarkerRe.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	var calls []RecoveredCall
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		region := text[m[0]:end]

		var call RecoveredCall
		if g := callIDRe.FindStringSubmatch(region); g != nil {
			call.ID = g[1]
		}
		if g := callNameRe.FindStringSubmatch(region); g != nil {
			call.Name = g[1]
		}
		if frag := firstJSONObject(region); frag != "" {
			call.ArgsFragment = frag
			if gjson.Valid(frag) {
				if m, ok := gjson.Parse(frag).Value().(map[string]any); ok {
					call.Arguments = m
				}
			}
		}
		if call.ID == "" && call.Name == "" && call.ArgsFragment == "" {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}

// firstJSONObject returns the first balanced {...} fragment in s, or ""
// when none closes. Brace counting skips string literals.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

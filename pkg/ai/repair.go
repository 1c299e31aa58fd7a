package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseable indicates that none of the repair strategies produced a
// decodable JSON object. Callers are expected to fall back to a local
// deterministic result instead of surfacing this to the user.
var ErrUnparseable = errors.New("response could not be parsed as a json object")

var quoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// ParseObject turns raw reasoning-service output into a key/value record.
// Three strategies are tried in order, first success wins:
//
//  1. decode the trimmed text as-is
//  2. extract the largest balanced {...} block, strip markdown code fences
//     and smart quotes, decode again
//  3. slice from the first '{' to the last '}' inclusive, apply the same
//     normalization, decode again
func ParseObject(raw string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrUnparseable
	}

	if record, err := decodeObject(trimmed); err == nil {
		return record, nil
	}

	if candidate := largestBraceBlock(trimmed); candidate != "" {
		if record, err := decodeObject(normalizeJSONText(candidate)); err == nil {
			return record, nil
		}
	}

	if candidate := boundarySlice(trimmed); candidate != "" {
		if record, err := decodeObject(normalizeJSONText(candidate)); err == nil {
			return record, nil
		}
	}

	return nil, ErrUnparseable
}

func decodeObject(text string) (map[string]interface{}, error) {
	var record map[string]interface{}
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrUnparseable
	}
	return record, nil
}

// largestBraceBlock scans for balanced top-level {...} runs and returns the
// longest one, favouring the most complete object over partial fragments
// embedded in surrounding commentary.
func largestBraceBlock(text string) string {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidate := text[start : i+1]
					if len(candidate) > len(best) {
						best = candidate
					}
					start = -1
				}
			}
		}
	}

	return best
}

// boundarySlice returns the text between the first '{' and the last '}'
// inclusive, or empty when either brace is missing.
func boundarySlice(text string) string {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first < 0 || last < 0 || last <= first {
		return ""
	}
	return text[first : last+1]
}

// normalizeJSONText strips markdown code fence markers and replaces Unicode
// smart quotes with their ASCII equivalents.
func normalizeJSONText(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(strings.TrimSpace(text), "```") {
		text = strings.TrimSpace(text)
		text = strings.TrimSuffix(text, "```")
	}

	return quoteReplacer.Replace(strings.TrimSpace(text))
}

package llm

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractJSON pulls the first JSON object out of a model response. Models
// routinely wrap output in markdown fences or add prose around the payload,
// so this strips fences and scans for the outermost balanced object before
// validating it.
func ExtractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	start := strings.Index(cleaned, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := cleaned[start : i+1]
				if !gjson.Valid(candidate) {
					return "", fmt.Errorf("malformed JSON object in response")
				}
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// Field reads a dotted path from a JSON document extracted with ExtractJSON.
func Field(doc, path string) gjson.Result {
	return gjson.Get(doc, path)
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON parses a completion into T. Markdown code fences and any prose
// around the outermost JSON value are ignored.
func DecodeJSON[T any](raw string) (T, error) {
	var out T
	body := extractJSON(raw)
	if body == "" {
		return out, fmt.Errorf("%w: no JSON value found", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, nil
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoObject is returned when no JSON object can be recovered from a reply.
var ErrNoObject = errors.New("no json object found in reply")

// Models wrap JSON in markdown fences more often than not.
var (
	wholeFenceRegex = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*[ \\t]*\\r?\\n?(.*?)\\s*```\\s*$")
	anyFenceRegex   = regexp.MustCompile("(?s)```[a-zA-Z]*[ \\t]*\\r?\\n?(.*?)\\s*```")
)

// StripFences removes a markdown code fence that wraps the whole text. Text
// without a wrapping fence is returned trimmed.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := wholeFenceRegex.FindStringSubmatch(trimmed); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// FirstBalancedObject returns the first brace-balanced {...} span that starts
// at or after from. Braces inside JSON strings are ignored. The second
// return value is the index just past the opening brace that was tried, so
// callers can resume the scan.
func FirstBalancedObject(text string, from int) (string, int, bool) {
	for from < len(text) {
		start := strings.IndexByte(text[from:], '{')
		if start == -1 {
			return "", len(text), false
		}
		start += from

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
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
					return text[start : i+1], start + 1, true
				}
			}
		}
		// Unbalanced from this brace, an inner one may still close.
		from = start + 1
	}
	return "", len(text), false
}

// DecodeObject decodes text as a single JSON object. Trailing data is an
// error; numbers are kept as json.Number.
func DecodeObject(text string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNoObject
	}
	if dec.More() {
		return nil, errors.New("unexpected data after json object")
	}
	return obj, nil
}

// ExtractObject recovers a JSON object from free-form model text. It tries,
// in order: the whole text, the text inside a wrapping or embedded code
// fence, and each brace-balanced span from left to right.
func ExtractObject(text string) (map[string]interface{}, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, "", ErrNoObject
	}
	if obj, err := DecodeObject(trimmed); err == nil {
		return obj, trimmed, nil
	}
	if inner := StripFences(trimmed); inner != trimmed {
		if obj, err := DecodeObject(inner); err == nil {
			return obj, inner, nil
		}
	}
	if m := anyFenceRegex.FindStringSubmatch(trimmed); len(m) > 1 {
		if obj, err := DecodeObject(strings.TrimSpace(m[1])); err == nil {
			return obj, strings.TrimSpace(m[1]), nil
		}
	}

	for pos := 0; pos < len(trimmed); {
		span, next, ok := FirstBalancedObject(trimmed, pos)
		if !ok {
			break
		}
		if obj, err := DecodeObject(span); err == nil {
			return obj, span, nil
		}
		pos = next
	}
	return nil, "", ErrNoObject
}

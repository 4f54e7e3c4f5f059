package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	braceObject = regexp.MustCompile(`(?s)\{.*\}`)
)

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// DecodeObject parses a JSON object out of model output. When the text is
// not valid JSON as a whole, the first brace-delimited span is tried.
func DecodeObject(raw string, v any) error {
	text := stripCodeBlock(raw)
	if text == "" {
		return ErrEmptyOutput
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	span := braceObject.FindString(text)
	if span == "" {
		return fmt.Errorf("no JSON object in output (raw: %s)", truncate(text, 200))
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("parse JSON object: %w (raw: %s)", err, truncate(text, 200))
	}
	return nil
}

// flexInt accepts 3, 3.0 and "3".
func flexInt(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.Atoi(n.String()); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil && f == float64(int(f)) {
			return int(f), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	return i, err == nil
}

// flexString accepts a JSON string, treating null and other types as empty.
func flexString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

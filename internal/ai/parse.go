package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON unmarshals model output into v. Markdown code fences are stripped first;
// an opening fence without a closing one, empty output or invalid JSON all yield ErrParse.
func DecodeJSON(raw string, v any) error {
	clean, err := cleanJSONString(raw)
	if err != nil {
		return err
	}
	if clean == "" {
		return fmt.Errorf("%w: empty output", ErrParse)
	}
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// cleanJSONString removes a markdown code block (```json ... ```) around the payload.
func cleanJSONString(input string) (string, error) {
	input = strings.TrimSpace(input)
	start := strings.Index(input, "```")
	if start < 0 {
		return input, nil
	}
	body := input[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && isFenceLanguage(body[:nl]) {
		body = body[nl+1:]
	} else if strings.HasPrefix(strings.ToLower(body), "json") {
		body = body[len("json"):]
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated code fence", ErrParse)
	}
	return strings.TrimSpace(body[:end]), nil
}

func isFenceLanguage(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
	}
	return true
}

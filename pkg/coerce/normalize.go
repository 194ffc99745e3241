package coerce

import "strings"

// StripFences removes a surrounding Markdown code fence from a model reply.
// Models frequently wrap JSON output as ```json ... ``` even when asked not
// to; the wrapped content must decode identically to the unwrapped content.
// Text without a leading fence is returned unchanged apart from whitespace
// trimming.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	body := s[3:]

	// Drop an optional language tag on the opening fence line.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(body[:idx])
		if !strings.ContainsAny(firstLine, "{}[]\"") {
			body = body[idx+1:]
		}
	} else {
		// Single-line fence such as ```{"a":1}``` or ```json{"a":1}```
		body = strings.TrimSpace(body)
		if idx := strings.IndexAny(body, "{[\""); idx > 0 {
			if tag := strings.TrimSpace(body[:idx]); len(strings.Fields(tag)) == 1 {
				body = body[idx:]
			}
		}
	}

	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")

	return strings.TrimSpace(body)
}

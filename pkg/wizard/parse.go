package wizard

import (
	"strings"

	"telepost/pkg/post"
)

// parseButtonLines extracts buttons from multi-line input in the form
// "label - url", one per line. The first hyphen splits label from URL,
// both halves are trimmed. Lines that don't yield a valid button are
// skipped without aborting the rest.
func parseButtonLines(input string) []post.Button {
	var buttons []post.Button
	for _, line := range strings.Split(input, "\n") {
		idx := strings.Index(line, "-")
		if idx < 0 {
			continue
		}
		label := strings.TrimSpace(line[:idx])
		url := strings.TrimSpace(line[idx+1:])
		if label == "" || len(label) > post.MaxButtonLabelLen {
			continue
		}
		if !isHTTPURL(url) {
			continue
		}
		buttons = append(buttons, post.Button{Label: label, URL: url})
	}
	return buttons
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

package feed

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether topicName occurs anywhere in text, ignoring case.
// There is no word-boundary check: "Go" matches "Google".
func Matches(text, topicName string) bool {
	// Casers hold state and must not be shared across goroutines.
	fold := cases.Fold()
	return strings.Contains(fold.String(text), fold.String(topicName))
}

package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizePolicy strips all markup from free-text fields before storage
var sanitizePolicy = bluemonday.StrictPolicy()

// cleanText trims surrounding whitespace and strips any markup from a
// free-text field, returning plain text.
func cleanText(s string) string {
	return html.UnescapeString(sanitizePolicy.Sanitize(strings.TrimSpace(s)))
}

// cleanName sanitizes a required name field, rejecting values that are
// empty after cleaning.
func cleanName(field, s string) (string, error) {
	name := cleanText(s)
	if name == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrValidation, field)
	}
	return name, nil
}

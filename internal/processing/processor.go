package processing

import (
	"html"
	"regexp"
	"strings"
)

var (
	markupTag  = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`[\s\p{Cc}]+`)
)

// StripMarkup removes HTML tags and decodes HTML entities, leaving plain text.
func StripMarkup(input string) string {
	if input == "" {
		return ""
	}
	decoded := html.UnescapeString(input)
	return markupTag.ReplaceAllString(decoded, " ")
}

// Sanitize strips markup and collapses whitespace and control characters to
// single spaces. Feed texts arrive with raw HTML fragments, hard line breaks
// and tabs; taggers expect one flat line.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}
	clean := StripMarkup(input)
	clean = whitespace.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// SanitizeForTagging additionally breaks hyphenated compounds apart, which
// keeps token boundaries stable for part-of-speech tagging.
func SanitizeForTagging(input string) string {
	clean := Sanitize(input)
	if clean == "" {
		return ""
	}
	clean = strings.ReplaceAll(clean, "-", " ")
	clean = whitespace.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// Package validator checks drafted responses before they reach a moderator
// or the auto post path: every cited section must exist in the source
// article and the text must fit the platform's length limit.
package validator // import "github.com/joincivil/civil-debate-processor/pkg/validator"

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	// MaxResponseLength is the platform's hard character limit for a reply
	MaxResponseLength = 2200

	// MinResponseLength is the length under which a response is flagged as
	// suspiciously short
	MinResponseLength = 50
)

var citationRe = regexp.MustCompile(`§\d+(?:\.\d+)*`)

// CitationIndex answers whether a citation exists in an article
type CitationIndex interface {
	Numbered() bool
	CitationExists(token string) bool
}

// ExtractCitations returns every citation token in text in order of
// appearance. Repeated citations are kept.
func ExtractCitations(text string) []string {
	citations := citationRe.FindAllString(text, -1)
	if citations == nil {
		return []string{}
	}
	return citations
}

// NewResponseValidator returns a validator with the platform's limits
func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{
		maxLength: MaxResponseLength,
		minLength: MinResponseLength,
	}
}

// ResponseValidator checks drafted responses
type ResponseValidator struct {
	maxLength int
	minLength int
}

// ValidateCitations checks that every citation in text exists in the index.
// Unnumbered indexes are not checked.
func (v *ResponseValidator) ValidateCitations(text string, index CitationIndex) (bool, []string) {
	errs := []string{}
	if !index.Numbered() {
		return true, errs
	}
	for _, citation := range ExtractCitations(text) {
		if !index.CitationExists(citation) {
			errs = append(errs, fmt.Sprintf("Invalid citation: %v not found in article", citation))
		}
	}
	return len(errs) == 0, errs
}

// ValidateLength checks text against the length limit. Length is counted in
// characters, not bytes.
func (v *ResponseValidator) ValidateLength(text string) (bool, []string) {
	errs := []string{}
	length := utf8.RuneCountInString(text)
	if length > v.maxLength {
		errs = append(errs, fmt.Sprintf("Response too long: %v characters (max: %v)",
			length, v.maxLength))
	}
	return len(errs) == 0, errs
}

// Validate runs all checks and returns every error found
func (v *ResponseValidator) Validate(text string, index CitationIndex) (bool, []string) {
	citationsOK, citationErrs := v.ValidateCitations(text, index)
	lengthOK, lengthErrs := v.ValidateLength(text)
	errs := append(citationErrs, lengthErrs...)
	return citationsOK && lengthOK, errs
}

// Warnings returns notes on a response that are worth a moderator's
// attention but do not fail validation
func (v *ResponseValidator) Warnings(text string) []string {
	warnings := []string{}
	length := utf8.RuneCountInString(text)
	if length < v.minLength {
		warnings = append(warnings, fmt.Sprintf("Response suspiciously short: %v characters (min: %v)",
			length, v.minLength))
	}
	return warnings
}

// Package postcode resolves UK postcodes to geographic points.
//
// Format validation happens before any lookup so that malformed input fails
// fast and is never mistaken for a retryable error. Successful resolutions
// are cached for the lifetime of the process: postcode coordinates are
// effectively static, so entries never expire.
package postcode

import (
	"regexp"
	"strings"

	"musomatch/backend/internal/models"
)

// Compact form (no space): outward code followed by a digit and two letters.
var postcodeRE = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]?[0-9][A-Z]{2}$`)

// Normalize uppercases the input, strips all whitespace, validates the
// syntax, and re-inserts the canonical space before the inward code
// (the final three characters).
func Normalize(raw string) (string, error) {
	clean := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if !postcodeRE.MatchString(clean) {
		return "", models.ErrInvalidFormat
	}
	return clean[:len(clean)-3] + " " + clean[len(clean)-3:], nil
}

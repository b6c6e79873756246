package domain

import (
	"regexp"
	"strings"
)

// Booking codes are a 2-letter prefix followed by 14 uppercase alphanumerics,
// e.g. "YH20260113A1CD0F". Banks wrap them in arbitrary transfer metadata.
var bookingCodePattern = regexp.MustCompile(`[A-Z]{2}[A-Z0-9]{14}`)

// ExtractBookingCode pulls the booking code out of a free-text payment
// narrative. The first pattern match wins; if nothing matches, the first
// whitespace-delimited token is returned as a best-effort fallback for
// gateways that mangle the code. Returns "" only for blank narratives.
func ExtractBookingCode(narrative string) string {
	if code := bookingCodePattern.FindString(narrative); code != "" {
		return code
	}
	fields := strings.Fields(narrative)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

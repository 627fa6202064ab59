package refine

import (
	"strings"
	"unicode"
)

// ApprovalToken is the critic's approval signal.
const ApprovalToken = "APPROVED"

// IsApproved reports whether critic output is the approval token. Case,
// surrounding whitespace, quotes, trailing punctuation and markdown emphasis
// are ignored; anything else is feedback.
func IsApproved(feedback string) bool {
	trimmed := strings.TrimFunc(feedback, func(r rune) bool {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return true
		}
		switch r {
		case '*', '_', '`', '"', '\'', '“', '”', '‘', '’':
			return true
		}
		return false
	})
	return strings.EqualFold(trimmed, ApprovalToken)
}

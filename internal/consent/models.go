// Package consent implements remote (SMS) consent: issuing requests keyed
// by (phone, tag) and correlating inbound gateway callbacks with them.
package consent

import (
	"strings"

	"github.com/asaskevich/govalidator"

	derrors "aidantsconnect/pkg/domain-errors"
)

// State of a (phone, tag) consent key. PENDING means a request was sent and
// no resolution is journaled; AGREED and DENIED are terminal.
type State string

const (
	StateUnknown State = "UNKNOWN"
	StatePending State = "PENDING"
	StateAgreed  State = "AGREED"
	StateDenied  State = "DENIED"
)

// Callback is one inbound SMS delivery from the gateway.
type Callback struct {
	SenderID  string // phone number of the responding usager
	Tag       string // consent_request_tag echoed back by the gateway
	Message   string // free-text SMS body
	MessageID string // gateway message id, used for inbox cleanup
}

// NormalizePhone strips separators and folds French national format to
// E.164. Returns CodeBadRequest when the result is not a valid number.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = "+33" + cleaned[1:]
	}

	if !govalidator.IsE164(cleaned) {
		return "", derrors.Newf(derrors.CodeBadRequest, "phone %q is not a valid number", raw)
	}
	return cleaned, nil
}

// Classify folds the message body and matches it against the agree keyword
// set. Anything that is not an exact keyword match is a denial.
func Classify(message string, agreeKeywords []string) bool {
	folded := strings.ToUpper(strings.TrimFunc(message, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', '.', '!', ',', ';':
			return true
		}
		return false
	}))
	for _, kw := range agreeKeywords {
		if folded == strings.ToUpper(kw) {
			return true
		}
	}
	return false
}

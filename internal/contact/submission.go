// Package contact holds the contact form rule set shared by the browser-side
// controller and the server handler, so both reach the same verdict for the
// same input.
package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field length limits, counted in characters after trimming.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 320
	MaxSubjectLength = 150
	MaxMessageLength = 2000
)

// Field names a form field. The values match the JSON keys of Submission.
type Field string

const (
	FieldName           Field = "name"
	FieldEmail          Field = "email"
	FieldSubject        Field = "subject"
	FieldMessage        Field = "message"
	FieldChallengeToken Field = "challengeToken"
)

// Field error messages shown next to the offending input.
const (
	MsgEmailRequired   = "Email is required."
	MsgEmailInvalid    = "Enter a valid email address."
	MsgEmailTooLong    = "Email must be 320 characters or fewer."
	MsgSubjectRequired = "Subject is required."
	MsgSubjectTooLong  = "Subject must be 150 characters or fewer."
	MsgMessageRequired = "Message is required."
	MsgMessageTooLong  = "Message must be 2000 characters or fewer."
	MsgNameTooLong     = "Name must be 100 characters or fewer."
	MsgTokenRequired   = "Please complete the verification challenge."
	MsgWidgetFailed    = "Verification failed. Try again."
)

var emailPattern = regexp.MustCompile(`^[^\s@]{1,64}@[^\s@]{1,255}$`)

// Submission is the payload posted by the contact form.
type Submission struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	ChallengeToken string `json:"challengeToken"`
	Honeypot       string `json:"honeypot,omitempty"`

	// TurnstileToken is the key older form builds send the token under.
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

// Normalized returns a copy with every text field trimmed and the legacy
// token key folded into ChallengeToken. The token itself is opaque and is
// passed through untouched.
func (s Submission) Normalized() Submission {
	token := s.ChallengeToken
	if token == "" {
		token = s.TurnstileToken
	}
	return Submission{
		Name:           strings.TrimSpace(s.Name),
		Email:          strings.TrimSpace(s.Email),
		Subject:        strings.TrimSpace(s.Subject),
		Message:        strings.TrimSpace(s.Message),
		ChallengeToken: token,
		Honeypot:       s.Honeypot,
	}
}

// HoneypotTripped reports whether the hidden field carries anything but
// whitespace.
func (s Submission) HoneypotTripped() bool {
	return strings.TrimSpace(s.Honeypot) != ""
}

// Errors maps a field to a human-readable message. An empty map means the
// submission is valid.
type Errors map[Field]string

// Validate checks every rule and collects all violations. It trims fields
// itself, so callers may pass raw input.
func Validate(s Submission) Errors {
	errs := ValidateMessage(s)
	if strings.TrimSpace(s.Normalized().ChallengeToken) == "" {
		errs[FieldChallengeToken] = MsgTokenRequired
	}
	return errs
}

// ValidateMessage checks the message fields only, without the challenge
// token. The mail relay uses it on payloads that have already passed
// verification upstream.
func ValidateMessage(s Submission) Errors {
	n := s.Normalized()
	errs := Errors{}

	switch {
	case n.Email == "":
		errs[FieldEmail] = MsgEmailRequired
	case utf8.RuneCountInString(n.Email) > MaxEmailLength:
		errs[FieldEmail] = MsgEmailTooLong
	case !emailPattern.MatchString(n.Email):
		errs[FieldEmail] = MsgEmailInvalid
	}

	if n.Subject == "" {
		errs[FieldSubject] = MsgSubjectRequired
	} else if utf8.RuneCountInString(n.Subject) > MaxSubjectLength {
		errs[FieldSubject] = MsgSubjectTooLong
	}

	if n.Message == "" {
		errs[FieldMessage] = MsgMessageRequired
	} else if utf8.RuneCountInString(n.Message) > MaxMessageLength {
		errs[FieldMessage] = MsgMessageTooLong
	}

	if utf8.RuneCountInString(n.Name) > MaxNameLength {
		errs[FieldName] = MsgNameTooLong
	}

	return errs
}

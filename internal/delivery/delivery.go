// Package delivery sends a contact submission as one plaintext email, either
// straight to the Resend API, through the internal mail relay, or over SMTP.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is the submission content to deliver. Fields are expected trimmed.
type Message struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// SubjectLine is the subject of the outbound email.
func (m Message) SubjectLine() string {
	return "New inquiry: " + m.Subject
}

// Text is the plaintext email body: name, email, blank line, message.
func (m Message) Text() string {
	name := m.Name
	if name == "" {
		name = "(not provided)"
	}
	return strings.Join([]string{
		"Name: " + name,
		"Email: " + m.Email,
		"",
		m.Body,
	}, "\n")
}

// Dispatcher hands a message to a delivery collaborator. One Dispatch call is
// one delivery attempt; retrying is up to the caller.
type Dispatcher interface {
	// Name identifies the dispatcher in logs and metrics.
	Name() string
	// Configured reports whether every credential and address is set.
	Configured() bool
	Dispatch(ctx context.Context, msg Message) error
}

// StatusError is a non-success HTTP answer from a delivery collaborator.
type StatusError struct {
	Dispatcher string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Dispatcher, e.StatusCode)
}

// IsTransient reports whether a failed attempt may be retried. 5xx answers,
// timeouts and transport errors are transient; any other status is a
// rejection and final.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// Package form is the client side of the contact form: it owns field state,
// validation, the challenge token and submission status, and talks to the
// contact API through a Sender.
package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/contactform/backend/internal/contact"
)

var (
	// ErrInvalid means the form failed validation and nothing was sent.
	ErrInvalid = errors.New("form has invalid fields")
	// ErrInFlight means a submission is already in progress.
	ErrInFlight = errors.New("submission already in progress")
)

// Status is where a form session is in its submit cycle.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Messages shown for a finished submission.
const (
	MsgSent         = "Your message has been sent. We'll be in touch soon."
	MsgGenericError = "Something went wrong. Please try again."
)

// Fields is what the visitor typed.
type Fields struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Honeypot string
}

// Controller drives one form session. It is safe for concurrent use: widget
// callbacks may arrive from another goroutine while a submit is running.
type Controller struct {
	sender Sender

	mu        sync.Mutex
	fields    Fields
	token     string
	errors    contact.Errors
	status    Status
	submitErr string
	mount     *Mount
}

// NewController creates an idle Controller sending through sender.
func NewController(sender Sender) *Controller {
	return &Controller{sender: sender, errors: contact.Errors{}}
}

// AttachWidget links the mounted widget so it is reset after every attempt.
func (c *Controller) AttachWidget(m *Mount) {
	c.mu.Lock()
	c.mount = m
	c.mu.Unlock()
}

// Callbacks returns the widget callbacks bound to this controller.
func (c *Controller) Callbacks() Callbacks {
	return Callbacks{
		OnToken:  c.HandleToken,
		OnExpire: c.HandleExpire,
		OnError:  c.HandleWidgetError,
	}
}

// SetField updates one field by name.
func (c *Controller) SetField(field contact.Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch field {
	case contact.FieldName:
		c.fields.Name = value
	case contact.FieldEmail:
		c.fields.Email = value
	case contact.FieldSubject:
		c.fields.Subject = value
	case contact.FieldMessage:
		c.fields.Message = value
	}
}

// SetFields replaces every field at once.
func (c *Controller) SetFields(f Fields) {
	c.mu.Lock()
	c.fields = f
	c.mu.Unlock()
}

// Fields returns the current field values.
func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// HandleToken stores a fresh challenge token.
func (c *Controller) HandleToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	delete(c.errors, contact.FieldChallengeToken)
}

// HandleExpire drops an expired token.
func (c *Controller) HandleExpire() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// HandleWidgetError drops the token and tells the visitor to retry the challenge.
func (c *Controller) HandleWidgetError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.errors[contact.FieldChallengeToken] = contact.MsgWidgetFailed
}

// Token returns the current challenge token, empty if none.
func (c *Controller) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Status returns the submit status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Errors returns a copy of the current field errors.
func (c *Controller) Errors() contact.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(contact.Errors, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// StatusMessage is the line shown under the form for the current status.
func (c *Controller) StatusMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusSuccess:
		return MsgSent
	case StatusError:
		if c.submitErr != "" {
			return c.submitErr
		}
		return MsgGenericError
	}
	return ""
}

// Submit validates the form and, if it is valid, sends it once. It returns
// ErrInFlight without doing anything while another submit is running, and
// ErrInvalid when validation fails. Send errors are returned as-is after
// the status has been updated.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusSubmitting {
		c.mu.Unlock()
		return ErrInFlight
	}

	sub := contact.Submission{
		Name:           strings.TrimSpace(c.fields.Name),
		Email:          strings.TrimSpace(c.fields.Email),
		Subject:        strings.TrimSpace(c.fields.Subject),
		Message:        strings.TrimSpace(c.fields.Message),
		ChallengeToken: c.token,
		Honeypot:       c.fields.Honeypot,
	}
	errs := contact.Validate(sub)
	c.errors = errs
	if len(errs) > 0 {
		c.mu.Unlock()
		return ErrInvalid
	}
	c.status = StatusSubmitting
	c.submitErr = ""
	c.mu.Unlock()

	err := c.sender.Send(ctx, sub)

	c.mu.Lock()
	c.token = ""
	if err != nil {
		c.status = StatusError
		c.submitErr = submitErrorMessage(err)
		slog.Debug("contact submission failed", "error", err)
	} else {
		c.status = StatusSuccess
		c.fields = Fields{}
		c.errors = contact.Errors{}
	}
	mount := c.mount
	c.mu.Unlock()

	if mount != nil {
		mount.Reset()
	}
	return err
}

func submitErrorMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return contact.KindUnexpectedClientError.Message()
}

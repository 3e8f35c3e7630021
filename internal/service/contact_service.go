package service

import (
	"context"

	"github.com/contactform/backend/internal/contact"
)

// ContactService runs the server side of a contact submission.
type ContactService interface {
	// Submit validates, spam-checks, verifies and delivers one submission.
	// remoteIP may be empty. A failure is always a *contact.Error whose Kind
	// decides the response.
	Submit(ctx context.Context, sub contact.Submission, remoteIP string) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/delivery"
	"github.com/contactform/backend/internal/logging"
	"github.com/contactform/backend/internal/metrics"
	"github.com/contactform/backend/pkg/turnstile"
)

const (
	// MaxDeliveryAttempts bounds calls to the delivery collaborator per request.
	MaxDeliveryAttempts = 2
	// DefaultDeliveryTimeout bounds a single delivery attempt.
	DefaultDeliveryTimeout = 5 * time.Second
)

// ContactSettings configures contactServiceImpl.
type ContactSettings struct {
	// ChallengeSecret must be set for verification to be attempted.
	ChallengeSecret string
	// AttemptTimeout bounds one delivery attempt. Zero means
	// DefaultDeliveryTimeout.
	AttemptTimeout time.Duration
}

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	settings   ContactSettings
	verifier   turnstile.Verifier
	dispatcher delivery.Dispatcher
}

// NewContactService creates a ContactService that verifies through verifier
// and delivers through dispatcher.
func NewContactService(settings ContactSettings, verifier turnstile.Verifier, dispatcher delivery.Dispatcher) ContactService {
	if settings.AttemptTimeout <= 0 {
		settings.AttemptTimeout = DefaultDeliveryTimeout
	}
	return &contactServiceImpl{
		settings:   settings,
		verifier:   verifier,
		dispatcher: dispatcher,
	}
}

// Submit checks in a fixed order and stops at the first failure: schema,
// honeypot, configuration, challenge, delivery.
func (s *contactServiceImpl) Submit(ctx context.Context, sub contact.Submission, remoteIP string) error {
	err := s.submit(ctx, sub, remoteIP)
	outcome := "ok"
	if err != nil {
		outcome = contact.KindOf(err).String()
	}
	metrics.Submissions.WithLabelValues(outcome).Inc()
	return err
}

func (s *contactServiceImpl) submit(ctx context.Context, sub contact.Submission, remoteIP string) error {
	log := logging.FromContext(ctx)

	if errs := contact.Validate(sub); len(errs) > 0 {
		return contact.NewError(contact.KindSchemaInvalid, fmt.Errorf("%d invalid fields", len(errs)))
	}
	n := sub.Normalized()

	if n.HoneypotTripped() {
		log.Info("honeypot tripped, submission dropped")
		return contact.NewError(contact.KindSpamRejected, nil)
	}

	if s.settings.ChallengeSecret == "" || !s.dispatcher.Configured() {
		log.Error("contact pipeline is missing configuration", "dispatcher", s.dispatcher.Name())
		return contact.NewError(contact.KindServerMisconfigured, nil)
	}

	if err := s.verify(ctx, n.ChallengeToken, remoteIP); err != nil {
		return err
	}

	return s.deliver(ctx, delivery.Message{
		Name:    n.Name,
		Email:   n.Email,
		Subject: n.Subject,
		Body:    n.Message,
	})
}

// verify treats every problem with the challenge service the same as a
// rejected token.
func (s *contactServiceImpl) verify(ctx context.Context, token, remoteIP string) error {
	res, err := s.verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		metrics.Verifications.WithLabelValues("error").Inc()
		logging.FromContext(ctx).Warn("challenge verification unavailable", "error", err)
		return contact.NewError(contact.KindVerificationFailed, err)
	}
	if !res.Success {
		metrics.Verifications.WithLabelValues("rejected").Inc()
		logging.FromContext(ctx).Info("challenge rejected", "error_codes", res.ErrorCodes)
		return contact.NewError(contact.KindVerificationFailed, errors.New("token rejected"))
	}
	metrics.Verifications.WithLabelValues("ok").Inc()
	return nil
}

// deliver makes up to MaxDeliveryAttempts sequential attempts. Only transient
// failures are retried.
func (s *contactServiceImpl) deliver(ctx context.Context, msg delivery.Message) error {
	log := logging.FromContext(ctx).With("dispatcher", s.dispatcher.Name())

	var lastErr error
	for attempt := 1; attempt <= MaxDeliveryAttempts; attempt++ {
		err := s.attempt(ctx, msg)
		if err == nil {
			metrics.DeliveryAttempts.WithLabelValues(s.dispatcher.Name(), "ok").Inc()
			if attempt > 1 {
				log.Info("delivery succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			log.Warn("caller went away during delivery", "attempt", attempt)
			return contact.NewError(contact.KindDeliveryFailed, ctx.Err())
		}
		if !delivery.IsTransient(err) {
			metrics.DeliveryAttempts.WithLabelValues(s.dispatcher.Name(), "rejected").Inc()
			log.Error("delivery rejected", "attempt", attempt, "error", err)
			return contact.NewError(contact.KindDeliveryFailed, err)
		}
		metrics.DeliveryAttempts.WithLabelValues(s.dispatcher.Name(), "transient").Inc()
		log.Warn("delivery attempt failed", "attempt", attempt, "error", err)
	}

	log.Error("delivery failed", "attempts", MaxDeliveryAttempts, "error", lastErr)
	return contact.NewError(contact.KindDeliveryFailed, lastErr)
}

func (s *contactServiceImpl) attempt(ctx context.Context, msg delivery.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.AttemptTimeout)
	defer cancel()
	return s.dispatcher.Dispatch(ctx, msg)
}

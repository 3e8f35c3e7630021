package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/contactform/backend/internal/model"
)

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

// ResendConfig configures a ResendDispatcher.
type ResendConfig struct {
	APIKey string
	APIURL string
	From   string
	To     string
	// ReplyTo overrides the reply address; by default replies go to the
	// submitter.
	ReplyTo string
}

// ResendDispatcher sends through the Resend HTTP API.
type ResendDispatcher struct {
	cfg        ResendConfig
	httpClient *http.Client
}

// NewResendDispatcher creates a ResendDispatcher. Per-attempt deadlines come
// from the caller's context.
func NewResendDispatcher(cfg ResendConfig) *ResendDispatcher {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultResendURL
	}
	return &ResendDispatcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Dispatcher = (*ResendDispatcher)(nil)

func (d *ResendDispatcher) Name() string { return "resend" }

func (d *ResendDispatcher) Configured() bool {
	return d.cfg.APIKey != "" && d.cfg.From != "" && d.cfg.To != ""
}

// Dispatch makes one send-email call. Any non-2xx answer is a *StatusError.
func (d *ResendDispatcher) Dispatch(ctx context.Context, msg Message) error {
	replyTo := d.cfg.ReplyTo
	if replyTo == "" {
		replyTo = msg.Email
	}

	body, err := json.Marshal(model.ResendEmail{
		From:    d.cfg.From,
		To:      d.cfg.To,
		Subject: msg.SubjectLine(),
		Text:    msg.Text(),
		ReplyTo: replyTo,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Dispatcher: d.Name(), StatusCode: resp.StatusCode}
	}
	return nil
}

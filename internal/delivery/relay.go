package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contactform/backend/internal/model"
)

// RelayAuthHeader carries the shared secret between the API and the relay.
const RelayAuthHeader = "X-Worker-Auth"

// RelaySendPath is the relay's only route.
const RelaySendPath = "/internal/send"

// RelayDispatcher forwards messages to the internal mail relay.
type RelayDispatcher struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewRelayDispatcher creates a RelayDispatcher for the relay at baseURL.
func NewRelayDispatcher(baseURL, secret string) *RelayDispatcher {
	return &RelayDispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Dispatcher = (*RelayDispatcher)(nil)

func (d *RelayDispatcher) Name() string { return "relay" }

func (d *RelayDispatcher) Configured() bool {
	return d.baseURL != "" && d.secret != ""
}

// Dispatch posts msg to the relay. Any non-2xx answer is a *StatusError.
func (d *RelayDispatcher) Dispatch(ctx context.Context, msg Message) error {
	body, err := json.Marshal(model.RelayPayload{
		Name:    msg.Name,
		Email:   msg.Email,
		Subject: msg.Subject,
		Message: msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+RelaySendPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RelayAuthHeader, d.secret)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Dispatcher: d.Name(), StatusCode: resp.StatusCode}
	}
	return nil
}

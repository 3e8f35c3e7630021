package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/model"
)

// MsgSendFailed is shown when the server rejects a submission without saying why.
const MsgSendFailed = "Unable to send your message right now."

// Sender delivers one submission to the contact API.
type Sender interface {
	Send(ctx context.Context, sub contact.Submission) error
}

// RejectedError is a non-2xx answer from the contact API. Message is the
// server's error string, or MsgSendFailed when it sent none.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string { return e.Message }

// APIClient posts submissions to {BaseURL}/api/contact.
type APIClient struct {
	BaseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient. An empty baseURL posts to the same
// origin path, which only makes sense behind a proxy.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts sub as JSON. Transport failures are returned wrapped; any non-2xx
// answer becomes a *RejectedError.
func (c *APIClient) Send(ctx context.Context, sub contact.Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/contact", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send submission: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// A body that is not JSON is treated as if it carried no message.
	var payload model.SubmitResponse
	_ = json.Unmarshal(raw, &payload)
	msg := payload.Error
	if msg == "" {
		msg = MsgSendFailed
	}
	return &RejectedError{StatusCode: resp.StatusCode, Message: msg}
}

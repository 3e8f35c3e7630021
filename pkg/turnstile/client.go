// Package turnstile provides a lightweight Cloudflare Turnstile siteverify client.
// Uses raw HTTP calls (no SDK).
package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is the public siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	// ErrNotConfigured is returned when no secret key is set.
	ErrNotConfigured = errors.New("turnstile: not configured")
	// ErrUnavailable covers transport failures and non-2xx answers.
	ErrUnavailable = errors.New("turnstile: siteverify unavailable")
	// ErrInvalidResponse is returned when the answer does not match the
	// expected schema.
	ErrInvalidResponse = errors.New("turnstile: invalid siteverify response")
)

// Result is the siteverify answer.
type Result struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verifier checks a widget token.
type Verifier interface {
	// Verify checks token for the given caller address (may be empty).
	Verify(ctx context.Context, token, remoteIP string) (Result, error)
}

// RealClient calls the siteverify endpoint.
type RealClient struct {
	Secret     string
	VerifyURL  string
	httpClient *http.Client
}

// NewClient creates a RealClient. An empty verifyURL selects DefaultVerifyURL.
func NewClient(secret, verifyURL string) *RealClient {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &RealClient{
		Secret:     secret,
		VerifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Verifier = (*RealClient)(nil)

// Verify posts the token and returns the decoded answer. A non-nil error means
// the answer could not be obtained or trusted.
func (c *RealClient) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	if c.Secret == "" {
		return Result{}, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("secret", c.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var raw struct {
		Success    *bool    `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if raw.Success == nil {
		return Result{}, fmt.Errorf("%w: missing success field", ErrInvalidResponse)
	}
	return Result{Success: *raw.Success, ErrorCodes: raw.ErrorCodes}, nil
}

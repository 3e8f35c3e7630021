package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/contactform/backend/internal/contact"
	"github.com/contactform/backend/internal/delivery"
	"github.com/contactform/backend/internal/model"
	"github.com/contactform/backend/internal/service"
	"github.com/contactform/backend/pkg/turnstile"
)

// ---------------------------------------------------------------------------
// Mock ContactService
// ---------------------------------------------------------------------------

type mockContactService struct {
	submitFunc func(ctx context.Context, sub contact.Submission, remoteIP string) error
	calls      int
	lastSub    contact.Submission
	lastIP     string
}

func (m *mockContactService) Submit(ctx context.Context, sub contact.Submission, remoteIP string) error {
	m.calls++
	m.lastSub = sub
	m.lastIP = remoteIP
	if m.submitFunc != nil {
		return m.submitFunc(ctx, sub, remoteIP)
	}
	return nil
}

const validBody = `{"name":"Tester","email":"tester@example.com","subject":"Hello","message":"Testing message","challengeToken":"turnstile-token","honeypot":""}`

func postContact(h http.HandlerFunc, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.RemoteAddr = "198.51.100.7:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.SubmitResponse {
	t.Helper()
	var resp model.SubmitResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// ---------------------------------------------------------------------------
// POST /api/contact (handler only)
// ---------------------------------------------------------------------------

func TestContactHandler_Submit_Success(t *testing.T) {
	mock := &mockContactService{}
	h := NewContactHandler(mock, 1)

	rec := postContact(h.Submit, "application/json", validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeResponse(t, rec); !resp.OK || resp.Error != "" {
		t.Errorf("expected {ok:true}, got %+v", resp)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", got)
	}
	if mock.lastSub.ChallengeToken != "turnstile-token" || mock.lastSub.Email != "tester@example.com" {
		t.Errorf("unexpected submission passed to service: %+v", mock.lastSub)
	}
	if mock.lastIP != "198.51.100.7" {
		t.Errorf("expected remote IP from socket, got %q", mock.lastIP)
	}
}

func TestContactHandler_Submit_WrongContentType(t *testing.T) {
	mock := &mockContactService{}
	h := NewContactHandler(mock, 1)

	rec := postContact(h.Submit, "text/plain", validBody)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.OK || resp.Error != contact.KindMalformedRequest.Message() {
		t.Errorf("unexpected body: %+v", resp)
	}
	if mock.calls != 0 {
		t.Error("service must not be called")
	}
}

func TestContactHandler_Submit_AcceptsCharsetContentType(t *testing.T) {
	h := NewContactHandler(&mockContactService{}, 1)
	rec := postContact(h.Submit, "application/json; charset=utf-8", validBody)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestContactHandler_Submit_InvalidJSON(t *testing.T) {
	tests := map[string]string{
		"syntax":   `{"email":`,
		"empty":    ``,
		"trailing": validBody + `{}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			mock := &mockContactService{}
			rec := postContact(NewContactHandler(mock, 1).Submit, "application/json", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if mock.calls != 0 {
				t.Error("service must not be called")
			}
		})
	}
}

func TestContactHandler_Submit_WrongShapeIsSchemaError(t *testing.T) {
	for _, body := range []string{`[]`, `{"email":42}`, `"hello"`} {
		mock := &mockContactService{}
		rec := postContact(NewContactHandler(mock, 1).Submit, "application/json", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", body, rec.Code)
		}
		if mock.calls != 0 {
			t.Errorf("%s: service must not be called", body)
		}
	}
}

func TestContactHandler_Submit_MapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{contact.NewError(contact.KindSchemaInvalid, nil), http.StatusUnprocessableEntity},
		{contact.NewError(contact.KindSpamRejected, nil), http.StatusBadRequest},
		{contact.NewError(contact.KindServerMisconfigured, nil), http.StatusInternalServerError},
		{contact.NewError(contact.KindVerificationFailed, errors.New("internal detail")), http.StatusBadRequest},
		{contact.NewError(contact.KindDeliveryFailed, errors.New("internal detail")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		mock := &mockContactService{submitFunc: func(context.Context, contact.Submission, string) error { return tc.err }}
		rec := postContact(NewContactHandler(mock, 1).Submit, "application/json", validBody)

		if rec.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		body := rec.Body.String()
		if strings.Contains(body, "internal detail") || strings.Contains(body, "boom") {
			t.Errorf("internal error text leaked: %s", body)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		trusted int
		want    string
	}{
		{"cloudflare header", map[string]string{"CF-Connecting-IP": "203.0.113.10", "X-Forwarded-For": "1.1.1.1"}, 1, "203.0.113.10"},
		{"forwarded single proxy", map[string]string{"X-Forwarded-For": "9.9.9.9, 203.0.113.5"}, 1, "203.0.113.5"},
		{"forwarded ignored", map[string]string{"X-Forwarded-For": "9.9.9.9"}, 0, "192.0.2.1"},
		{"socket", nil, 1, "192.0.2.1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tc.trusted); got != tc.want {
				t.Errorf("clientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// End-to-end: router + service + real clients against fake collaborators
// ---------------------------------------------------------------------------

type pipeline struct {
	router        http.Handler
	verifyCalls   *atomic.Int32
	deliveryCalls *atomic.Int32
}

// newPipeline starts fake Turnstile and Resend servers. verify answers the
// siteverify call; deliver answers the n-th (1-based) send call.
func newPipeline(t *testing.T, verify http.HandlerFunc, deliver func(n int32, w http.ResponseWriter)) pipeline {
	t.Helper()
	p := pipeline{verifyCalls: &atomic.Int32{}, deliveryCalls: &atomic.Int32{}}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.verifyCalls.Add(1)
		verify(w, r)
	}))
	t.Cleanup(ts.Close)

	rs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliver(p.deliveryCalls.Add(1), w)
	}))
	t.Cleanup(rs.Close)

	svc := service.NewContactService(
		service.ContactSettings{ChallengeSecret: "turnstile-secret"},
		turnstile.NewClient("turnstile-secret", ts.URL),
		delivery.NewResendDispatcher(delivery.ResendConfig{
			APIKey: "resend-key", APIURL: rs.URL, From: "sender@example.com", To: "destination@example.com",
		}),
	)
	h := New("contact API", []string{"http://localhost:5173"}, nil)
	p.router = NewContactRouter(h, NewContactHandler(svc, 1), nil)
	return p
}

func (p pipeline) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("CF-Connecting-IP", "203.0.113.10")
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func verifyOK(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"success":true}`)) }

func sendStatus(statuses ...int) func(n int32, w http.ResponseWriter) {
	return func(n int32, w http.ResponseWriter) {
		status := http.StatusOK
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
	}
}

func TestContactPipeline_ScenarioA_Success(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusOK))

	rec := p.post(validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeResponse(t, rec); !resp.OK {
		t.Errorf("expected ok, got %+v", resp)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected CORS origin echo, got %q", got)
	}
	if p.deliveryCalls.Load() != 1 {
		t.Errorf("expected 1 delivery attempt, got %d", p.deliveryCalls.Load())
	}
}

func TestContactPipeline_ScenarioB_InvalidEmail(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusOK))

	rec := p.post(strings.Replace(validBody, "tester@example.com", "not-an-email", 1))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != "Please provide valid contact details." {
		t.Errorf("unexpected error message %q", resp.Error)
	}
	if p.verifyCalls.Load() != 0 || p.deliveryCalls.Load() != 0 {
		t.Errorf("no collaborator may be called: verify=%d deliver=%d", p.verifyCalls.Load(), p.deliveryCalls.Load())
	}
}

func TestContactPipeline_ScenarioC_VerificationRejected(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}, sendStatus(http.StatusOK))

	rec := p.post(validBody)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != contact.KindVerificationFailed.Message() {
		t.Errorf("unexpected error message %q", resp.Error)
	}
	if p.deliveryCalls.Load() != 0 {
		t.Errorf("delivery must not be attempted, got %d", p.deliveryCalls.Load())
	}
}

func TestContactPipeline_VerificationUnavailableLooksTheSame(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, sendStatus(http.StatusOK))

	rec := p.post(validBody)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != contact.KindVerificationFailed.Message() {
		t.Errorf("unexpected error message %q", resp.Error)
	}
}

func TestContactPipeline_ScenarioD_RetryAfterServerError(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusServiceUnavailable, http.StatusOK))

	rec := p.post(validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body: %s", rec.Code, rec.Body.String())
	}
	if p.deliveryCalls.Load() != 2 {
		t.Errorf("expected exactly 2 delivery attempts, got %d", p.deliveryCalls.Load())
	}
}

func TestContactPipeline_ScenarioE_RejectionNotRetried(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusUnprocessableEntity, http.StatusOK))

	rec := p.post(validBody)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error != "Unable to deliver message right now." {
		t.Errorf("unexpected error message %q", resp.Error)
	}
	if p.deliveryCalls.Load() != 1 {
		t.Errorf("expected exactly 1 delivery attempt, got %d", p.deliveryCalls.Load())
	}
}

func TestContactPipeline_HoneypotBeforeVerification(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusOK))

	rec := p.post(strings.Replace(validBody, `"honeypot":""`, `"honeypot":"i am a bot"`, 1))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.OK || resp.Error != "Submission rejected." {
		t.Errorf("unexpected body %+v", resp)
	}
	if p.verifyCalls.Load() != 0 {
		t.Errorf("verification must not be attempted, got %d", p.verifyCalls.Load())
	}
}

func TestContactPipeline_LegacyRoute(t *testing.T) {
	p := newPipeline(t, verifyOK, sendStatus(http.StatusOK))

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mailgate/config"
	controller "mailgate/controllers"
	"mailgate/routes"
	"mailgate/verify"
)

type fakeResolver struct {
	domains map[string]bool
}

func (f *fakeResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	if f.domains[domain] {
		return []*net.MX{{Host: "mx." + domain + ".", Pref: 10}}, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: domain, IsNotFound: true}
}

func (f *fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

type fakeProvider struct {
	status string
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Verify(ctx context.Context, email, clientIP string) (*verify.ProviderResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &verify.ProviderResult{Status: f.status, Raw: json.RawMessage(`{}`)}, nil
}

func newTestApp(t *testing.T, provider *fakeProvider) *fiber.App {
	t.Helper()

	config.AppConfig = config.Config{
		Environment:      "test",
		RoleAccountMode:  "reject",
		RateLimitGeneral: 100,
		RateLimitVerify:  3,
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	resolver := &fakeResolver{domains: map[string]bool{"proton.me": true}}
	service := verify.NewService(&config.AppConfig, provider, logger, verify.WithResolver(resolver))
	vc := controller.NewValidationController(&config.AppConfig, service, nil, nil, logger)

	app := fiber.New()
	routes.SetupRoutes(app, vc)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s failed: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return parsed
}

func TestPrecheckEndpoint(t *testing.T) {
	testCases := []struct {
		name         string
		email        string
		wantStatus   int
		wantPrecheck string
		wantReason   string
	}{
		{
			name:         "deliverable address",
			email:        "alice@proton.me",
			wantStatus:   http.StatusOK,
			wantPrecheck: "pass",
		},
		{
			name:         "invalid syntax",
			email:        "not-an-email",
			wantStatus:   http.StatusOK,
			wantPrecheck: "fail",
			wantReason:   "That doesn't look like a valid email format",
		},
		{
			name:         "disposable domain",
			email:        "x@mailinator.com",
			wantStatus:   http.StatusOK,
			wantPrecheck: "fail",
			wantReason:   "Please use a real email address, not a temporary one",
		},
		{
			name:         "role account",
			email:        "admin@proton.me",
			wantStatus:   http.StatusOK,
			wantPrecheck: "fail",
			wantReason:   "Please use your personal email instead of a generic address",
		},
		{
			name:         "unresolvable domain",
			email:        "bob@no-such-domain-zz.example",
			wantStatus:   http.StatusOK,
			wantPrecheck: "fail",
			wantReason:   "This email domain doesn't seem to accept messages",
		},
		{
			name:         "missing email",
			email:        "",
			wantStatus:   http.StatusBadRequest,
			wantPrecheck: "fail",
			wantReason:   "Invalid input",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, &fakeProvider{status: verify.StatusValid})

			resp, body := postJSON(t, app, "/precheck", map[string]string{"email": tc.email})
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			if body["precheck"] != tc.wantPrecheck {
				t.Errorf("precheck = %v, want %q", body["precheck"], tc.wantPrecheck)
			}
			if tc.wantReason != "" && body["reason"] != tc.wantReason {
				t.Errorf("reason = %v, want %q", body["reason"], tc.wantReason)
			}
		})
	}
}

func TestVerifyEndpointRequiresPrecheck(t *testing.T) {
	app := newTestApp(t, &fakeProvider{status: verify.StatusValid})

	resp, body := postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if body["error"] != "Precheck not passed. Call /precheck first." {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestVerifyEndpointProviderThenCache(t *testing.T) {
	provider := &fakeProvider{status: verify.StatusValid}
	app := newTestApp(t, provider)

	if resp, _ := postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("precheck status = %d", resp.StatusCode)
	}

	resp, body := postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != verify.StatusValid || body["source"] != "provider" {
		t.Errorf("first verify = %v/%v, want valid/provider", body["status"], body["source"])
	}

	_, body = postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
	if body["source"] != "cache" {
		t.Errorf("second verify source = %v, want cache", body["source"])
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestVerifyEndpointProviderUnavailable(t *testing.T) {
	app := newTestApp(t, &fakeProvider{err: errors.New("connection refused")})

	postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"})

	resp, body := postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if body["error"] != "Verification service unavailable" {
		t.Errorf("unexpected error message: %v", body["error"])
	}
}

func TestVerifyEndpointRateLimited(t *testing.T) {
	app := newTestApp(t, &fakeProvider{status: verify.StatusValid})

	postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"})

	for i := 0; i < 3; i++ {
		resp, _ := postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("verify %d status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	resp, body := postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if body["error"] != "Too many verification attempts, please try again later." {
		t.Errorf("unexpected limit message: %v", body["error"])
	}
}

func TestSendMessageGating(t *testing.T) {
	provider := &fakeProvider{status: verify.StatusValid}
	app := newTestApp(t, provider)

	// Unverified address is denied without spending a provider credit.
	resp, body := postJSON(t, app, "/send-message", map[string]string{
		"email":   "alice@proton.me",
		"message": "hello there",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if body["reason"] != "Email not verified or invalid. Please verify first." {
		t.Errorf("unexpected reason: %v", body["reason"])
	}
	if provider.calls != 0 {
		t.Errorf("send attempt triggered %d provider calls", provider.calls)
	}

	postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"})
	postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})

	resp, body = postJSON(t, app, "/send-message", map[string]string{
		"email":   "alice@proton.me",
		"message": "hello there",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status after verification = %d, want 200", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
}

func TestSendMessageDeniedForNonValidStatus(t *testing.T) {
	app := newTestApp(t, &fakeProvider{status: verify.StatusCatchAll})

	postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"})
	postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})

	resp, _ := postJSON(t, app, "/send-message", map[string]string{
		"email":   "alice@proton.me",
		"message": "hello there",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for catch_all verdict", resp.StatusCode)
	}
}

func TestSendMessageValidation(t *testing.T) {
	app := newTestApp(t, &fakeProvider{status: verify.StatusValid})

	resp, body := postJSON(t, app, "/send-message", map[string]string{"email": "alice@proton.me"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing message", resp.StatusCode)
	}
	if body["ok"] != false {
		t.Errorf("ok = %v, want false", body["ok"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	provider := &fakeProvider{status: verify.StatusValid}
	app := newTestApp(t, provider)

	postJSON(t, app, "/precheck", map[string]string{"email": "alice@proton.me"})
	postJSON(t, app, "/verify", map[string]string{"email": "alice@proton.me"})

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if _, ok := body["cache_stats"]; !ok {
		t.Error("response missing cache_stats")
	}
	if body["provider_calls"] != float64(1) {
		t.Errorf("provider_calls = %v, want 1", body["provider_calls"])
	}
}

func TestHealthAndNotFound(t *testing.T) {
	app := newTestApp(t, &fakeProvider{status: verify.StatusValid})

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, "/nope", nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

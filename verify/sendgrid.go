package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"

	"mailgate/config"
)

type sendGridValidationResult struct {
	Email   string  `json:"email"`
	Verdict string  `json:"verdict"`
	Score   float32 `json:"score"`
}

type sendGridValidationResponse struct {
	Result sendGridValidationResult `json:"result"`
}

// SendGridProvider is the alternate paid provider, backed by the SendGrid email
// address validation API.
type SendGridProvider struct {
	APIHost string
	APIKey  string
	Timeout time.Duration
}

func NewSendGridProvider(cfg *config.Config) *SendGridProvider {
	return &SendGridProvider{
		APIHost: cfg.SendGridAPIHost,
		APIKey:  cfg.SendGridAPIKey,
		Timeout: cfg.ProviderTimeout,
	}
}

func (p *SendGridProvider) Name() string { return "sendgrid" }

// Verify maps SendGrid's Valid/Risky/Invalid verdict onto the status enum; a
// Risky verdict becomes "unknown" so it is re-checked on the shorter TTL.
func (p *SendGridProvider) Verify(ctx context.Context, email, clientIP string) (*ProviderResult, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: missing API key")
	}

	request := sendgrid.GetRequest(p.APIKey, "/v3/validations/email", p.APIHost)
	request.Method = "POST"
	request.Body = fmt.Appendf(request.Body, `{"email":%q,"source":"contact-form"}`, email)

	// Bound the call so a hung API never wedges the in-flight dedup entry.
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid api error: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("sendgrid: unexpected status %d", response.StatusCode)
	}

	var payload sendGridValidationResponse
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		return nil, fmt.Errorf("sendgrid unmarshal error: %w", err)
	}

	status := StatusUnknown
	switch payload.Result.Verdict {
	case "Valid":
		status = StatusValid
	case "Invalid":
		status = StatusInvalid
	}

	return &ProviderResult{
		Status: status,
		Raw:    json.RawMessage(response.Body),
	}, nil
}

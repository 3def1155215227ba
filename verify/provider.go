package verify

import (
	"context"
	"encoding/json"
	"fmt"

	"mailgate/config"
)

// Verification statuses as reported by the paid provider.
const (
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
	StatusCatchAll  = "catch_all"
	StatusUnknown   = "unknown"
	StatusSpamtrap  = "spamtrap"
	StatusAbuse     = "abuse"
	StatusDoNotMail = "do_not_mail"
)

// ProviderResult is the outcome of a single paid verification call: the mapped
// status plus the provider's raw payload.
type ProviderResult struct {
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"raw"`
}

// Provider performs a paid mailbox-existence check. Implementations must bound
// the call; a returned error means the result is not cached and a later call
// retries.
type Provider interface {
	Name() string
	Verify(ctx context.Context, email, clientIP string) (*ProviderResult, error)
}

func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.VerifyProvider {
	case "zerobounce":
		return NewZeroBounceProvider(cfg), nil
	case "sendgrid":
		return NewSendGridProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown verification provider: %s", cfg.VerifyProvider)
	}
}

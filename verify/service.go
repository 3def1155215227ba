package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"mailgate/config"
)

// Cache TTL policy. Settled provider verdicts (valid/invalid) are stable for a
// month; uncertain verdicts get re-checked within a week.
const (
	precheckTTL      = 24 * time.Hour
	dnsTTL           = 24 * time.Hour
	verifySettledTTL = 30 * 24 * time.Hour
	verifyUnsureTTL  = 7 * 24 * time.Hour
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrPrecheckRequired    = errors.New("precheck not passed")
	ErrProviderUnavailable = errors.New("verification provider unavailable")
)

type PrecheckResult struct {
	Pass    bool
	Reason  string
	Warning string
}

type VerifyResult struct {
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"raw"`
	Source string          `json:"source"`
}

// Metrics is the operational snapshot served by GET /metrics.
type Metrics struct {
	Cache         CacheStats `json:"cache_stats"`
	ProviderCalls int64      `json:"provider_calls"`
	StartedAt     time.Time  `json:"started_at"`
}

// Service sequences the validation pipeline: syntax, blocklist, role heuristic,
// DNS existence, paid provider verification, caching, in-flight dedup and send
// gating. Construct one per process (or per test) with NewService; there is
// deliberately no package-level instance, and all state is scoped to the
// process lifetime.
type Service struct {
	cfg      *config.Config
	cache    *Cache
	resolver Resolver
	provider Provider
	logger   *logrus.Logger

	flight        singleflight.Group
	providerCalls atomic.Int64
	startedAt     time.Time
}

// Option adjusts a Service at construction time.
type Option func(*Service)

// WithResolver replaces the DNS resolver, mainly for tests.
func WithResolver(r Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

func NewService(cfg *config.Config, provider Provider, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		cache:     NewCache(),
		resolver:  net.DefaultResolver,
		provider:  provider,
		logger:    logger,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func dnsKey(domain string) string     { return "dns:" + domain }
func precheckKey(email string) string { return "precheck:" + email }
func verifyKey(email string) string   { return "verify:" + email }

// Precheck runs the free validation stages in order: syntax, disposable-domain
// blocklist, role-account heuristic, DNS existence. It is idempotent: repeated
// calls with the same input yield the same result until caches expire or the
// underlying DNS changes. A blocklisted domain never reaches the resolver.
func (s *Service) Precheck(ctx context.Context, email string) *PrecheckResult {
	normalized := Normalize(email)
	if !ValidSyntax(normalized) {
		return &PrecheckResult{Reason: "That doesn't look like a valid email format"}
	}

	localPart, domain := splitAddress(normalized)

	if IsBlockedDomain(domain) {
		return &PrecheckResult{Reason: "Please use a real email address, not a temporary one"}
	}

	var warning string
	if IsRoleAccount(localPart) {
		if s.cfg.RoleAccountMode == "warn" {
			warning = "Generic addresses are often unmonitored; a personal address is more reliable"
		} else {
			return &PrecheckResult{Reason: "Please use your personal email instead of a generic address"}
		}
	}

	acceptsMail, cached := s.cachedDNS(domain)
	if !cached {
		var err error
		acceptsMail, err = s.domainAcceptsMail(ctx, domain)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"domain": domain,
				"error":  err.Error(),
			}).Warn("DNS lookup failed")
			// Fail closed for this attempt only. A transient resolver error is
			// not cached unless a negative TTL is configured, so the next
			// request retries the lookup.
			if s.cfg.DNSFailureTTL > 0 {
				s.cache.Set(dnsKey(domain), false, s.cfg.DNSFailureTTL)
			}
			return &PrecheckResult{Reason: "We couldn't verify this email domain exists"}
		}
		s.cache.Set(dnsKey(domain), acceptsMail, dnsTTL)
	}
	if !acceptsMail {
		return &PrecheckResult{Reason: "This email domain doesn't seem to accept messages"}
	}

	s.cache.Set(precheckKey(normalized), "pass", precheckTTL)
	return &PrecheckResult{Pass: true, Warning: warning}
}

func (s *Service) cachedDNS(domain string) (acceptsMail, ok bool) {
	v, ok := s.cache.Get(dnsKey(domain))
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Verify performs the paid provider check for an address whose precheck passed
// in the current cache epoch. Cached results are returned immediately; while a
// provider call is outstanding, concurrent calls for the same normalized
// address join it instead of spending another credit.
func (s *Service) Verify(ctx context.Context, email, clientIP string) (*VerifyResult, error) {
	normalized := Normalize(email)

	if v, ok := s.cache.Get(precheckKey(normalized)); !ok || v != "pass" {
		return nil, ErrPrecheckRequired
	}

	if v, ok := s.cache.Get(verifyKey(normalized)); ok {
		if cached, ok := v.(*ProviderResult); ok {
			s.logger.WithField("email_hash", EmailHash(normalized)).Info("verification cache hit")
			return &VerifyResult{Status: cached.Status, Raw: cached.Raw, Source: "cache"}, nil
		}
	}

	// singleflight keeps at most one outstanding provider call per key and
	// shares the executor's result (or error) with every joiner. The entry is
	// released when the call settles, so a failed call can be retried.
	executed := false
	v, err, _ := s.flight.Do(normalized, func() (interface{}, error) {
		executed = true
		return s.callProvider(ctx, normalized, clientIP)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	result := v.(*ProviderResult)
	source := "deduped_inflight"
	if executed {
		source = "provider"
	}
	return &VerifyResult{Status: result.Status, Raw: result.Raw, Source: source}, nil
}

func (s *Service) callProvider(ctx context.Context, normalized, clientIP string) (*ProviderResult, error) {
	hash := EmailHash(normalized)
	s.logger.WithFields(logrus.Fields{
		"email_hash": hash,
		"provider":   s.provider.Name(),
	}).Info("calling verification provider")

	result, err := s.provider.Verify(ctx, normalized, clientIP)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"email_hash": hash,
			"error":      err.Error(),
		}).Error("provider call failed")
		return nil, err
	}
	s.providerCalls.Add(1)

	ttl := verifySettledTTL
	if result.Status != StatusValid && result.Status != StatusInvalid {
		ttl = verifyUnsureTTL
	}
	s.cache.Set(verifyKey(normalized), result, ttl)

	return result, nil
}

// GateSend allows a send only when a cached verification with status "valid"
// exists for the address. It is a pure cache read: a send attempt without a
// prior verification is denied rather than silently verified.
func (s *Service) GateSend(email string) (allowed bool, reason string) {
	normalized := Normalize(email)
	v, ok := s.cache.Get(verifyKey(normalized))
	if !ok {
		return false, "Email not verified or invalid. Please verify first."
	}
	result, ok := v.(*ProviderResult)
	if !ok || result.Status != StatusValid {
		return false, "Email not verified or invalid. Please verify first."
	}
	return true, ""
}

// ProviderName identifies the configured paid provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// SweepCache evicts expired cache entries; the cache sweeper worker calls this
// periodically.
func (s *Service) SweepCache() int {
	return s.cache.SweepExpired()
}

func (s *Service) Metrics() Metrics {
	return Metrics{
		Cache:         s.cache.Stats(),
		ProviderCalls: s.providerCalls.Load(),
		StartedAt:     s.startedAt,
	}
}

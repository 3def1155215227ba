package verify

import (
	"context"
	"errors"
	"net"
	"time"
)

// Resolver is the subset of net.Resolver the existence checker needs; tests
// substitute fakes.
type Resolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

const dnsTimeout = 5 * time.Second

// domainAcceptsMail reports whether a domain can plausibly receive mail. MX
// records are the primary signal; when the domain simply has none, address
// records are a weaker liveness fallback. A transient resolver failure returns
// an error so the caller fails this attempt without caching the outcome.
func (s *Service) domainAcceptsMail(ctx context.Context, domain string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	mxRecords, err := s.resolver.LookupMX(ctx, domain)
	if err == nil && len(mxRecords) > 0 {
		return true, nil
	}
	if err != nil && !isNotFound(err) {
		return false, err
	}

	addrs, err := s.resolver.LookupIPAddr(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return len(addrs) > 0, nil
}

// isNotFound distinguishes "this name has no such records" from resolver or
// network trouble.
func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}

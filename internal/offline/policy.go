package offline

import (
	"fmt"
	"net/url"
	"strings"
)

// URLPolicy restricts which binary URLs the pipeline may fetch. It mirrors the
// backend's download proxy contract: https-only targets and an optional host
// allow-list.
type URLPolicy struct {
	// AllowedHosts lists exact host names or "*.suffix" wildcards. Empty allows any host.
	AllowedHosts []string
	// AllowInsecure permits plain http targets. Intended for local development.
	AllowInsecure bool
}

// Check parses raw and validates it against the policy.
func (p URLPolicy) Check(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !p.AllowInsecure {
			return nil, fmt.Errorf("%w: %s requires https", ErrURLNotAllowed, u.Redacted())
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrURLNotAllowed, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrURLNotAllowed)
	}
	if !p.hostAllowed(host) {
		return nil, fmt.Errorf("%w: host %s is not in the allow-list", ErrURLNotAllowed, host)
	}

	return u, nil
}

func (p URLPolicy) hostAllowed(host string) bool {
	if len(p.AllowedHosts) == 0 {
		return true
	}
	for _, allowed := range p.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

package discover

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL canonicalizes a URL for dedup: lowercase scheme and host,
// default ports dropped, query and fragment stripped, trailing slash trimmed.
// Only http(s) URLs are accepted.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = host + ":" + port
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return scheme + "://" + host + path, nil
}

// RegistrableDomain returns the eTLD+1 for a URL's host, e.g.
// "www.example.co.uk" -> "example.co.uk". Falls back to the bare host when
// the public suffix list cannot resolve it (localhost, IPs, test servers).
func RegistrableDomain(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return d, nil
}

// SameSite reports whether two URLs share a registrable domain. Hosts with
// explicit ports (local test servers) must match host:port exactly.
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if ua.Port() != "" || ub.Port() != "" {
		return strings.EqualFold(ua.Host, ub.Host)
	}
	da, err := RegistrableDomain(a)
	if err != nil {
		return false
	}
	db, err := RegistrableDomain(b)
	if err != nil {
		return false
	}
	return da == db
}

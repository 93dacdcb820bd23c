package identity

import (
	"net/netip"
	"regexp"
	"strings"
)

var hostnameLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// IsValidIPv4 reports whether s is a dotted-quad IPv4 address.
// Leading zeros and IPv4-mapped IPv6 forms are rejected.
func IsValidIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Is4()
}

// NormalizeFQDN validates the shape of a fully-qualified hostname and returns
// it lower-cased without a trailing dot. Only syntax is checked: at least two
// labels, RFC 1123 label characters, and a non-numeric top-level label.
// Whether the name resolves is irrelevant.
func NormalizeFQDN(s string) (string, bool) {
	name := strings.TrimSuffix(strings.TrimSpace(s), ".")
	if name == "" || len(name) > 253 {
		return "", false
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", false
	}
	for _, label := range labels {
		if !hostnameLabel.MatchString(label) {
			return "", false
		}
	}
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return "", false
	}

	return strings.ToLower(name), true
}

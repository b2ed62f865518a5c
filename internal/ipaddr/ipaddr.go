// Package ipaddr classifies and normalizes network address literals. It is
// pure: no configuration, no storage, no logging.
package ipaddr

import (
	"net/netip"
	"regexp"
	"strings"
)

// Unknown is the placeholder stored when no usable client address could be
// determined. It is treated specially everywhere: never matched against an
// assignment, never anonymized, never length-checked.
const Unknown = "Unknown"

// ipv4Pattern matches dotted-quad addresses with octets in 0-255.
var ipv4Pattern = regexp.MustCompile(
	`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`,
)

// ipv6Pattern matches full and compressed IPv6 forms. Inputs that slip past
// the pattern are confirmed with net/netip in IsIPv6.
var ipv6Pattern = regexp.MustCompile(
	`^([0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}$|` +
		`^::1$|` +
		`^::$|` +
		`^([0-9a-fA-F]{1,4}:){1,7}:$|` +
		`^([0-9a-fA-F]{1,4}:){1,6}:[0-9a-fA-F]{1,4}$|` +
		`^([0-9a-fA-F]{1,4}:){1,5}(:[0-9a-fA-F]{1,4}){1,2}$|` +
		`^([0-9a-fA-F]{1,4}:){1,4}(:[0-9a-fA-F]{1,4}){1,3}$|` +
		`^([0-9a-fA-F]{1,4}:){1,3}(:[0-9a-fA-F]{1,4}){1,4}$|` +
		`^([0-9a-fA-F]{1,4}:){1,2}(:[0-9a-fA-F]{1,4}){1,5}$|` +
		`^[0-9a-fA-F]{1,4}:((:[0-9a-fA-F]{1,4}){1,6})$|` +
		`^:((:[0-9a-fA-F]{1,4}){1,7}|:)$`,
)

// IsIPv4 reports whether s is a syntactically valid dotted-quad IPv4 literal.
// Leading zeros are accepted as written; no canonicalization happens here.
func IsIPv4(s string) bool {
	return ipv4Pattern.MatchString(strings.TrimSpace(s))
}

// IsIPv6 reports whether s is a syntactically valid IPv6 literal, including
// compressed forms.
func IsIPv6(s string) bool {
	trimmed := strings.TrimSpace(s)
	if ipv6Pattern.MatchString(trimmed) {
		return true
	}
	// netip catches compressed edge cases the pattern misses, but is too
	// permissive for IPv4 so it is only consulted for colon-bearing input.
	if strings.Contains(trimmed, ":") {
		addr, err := netip.ParseAddr(trimmed)
		return err == nil && addr.Is6()
	}
	return false
}

// IsValid reports whether s is a valid IPv4 or IPv6 literal.
func IsValid(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	return IsIPv4(trimmed) || IsIPv6(trimmed)
}

// Format normalizes an address for comparison and display: whitespace is
// trimmed and IPv6 hex groups are lowercased. Empty input and the Unknown
// sentinel normalize to the sentinel. IPv4 literals are returned as written;
// inputs are expected pre-validated, so "010.1.1.1" and "10.1.1.1" stay
// distinct.
func Format(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == Unknown {
		return Unknown
	}
	if strings.Contains(trimmed, ":") {
		return strings.ToLower(trimmed)
	}
	return trimmed
}

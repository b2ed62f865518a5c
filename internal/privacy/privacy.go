// Package privacy governs how network addresses are masked for display and
// what may ever be written to storage, and records an audit trail of address
// data access.
package privacy

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"checkpoint/internal/ipaddr"
	dErrors "checkpoint/pkg/domain-errors"
)

// Level is how aggressively an address is masked before display.
type Level string

const (
	LevelNone    Level = "NONE"
	LevelPartial Level = "PARTIAL"
	LevelFull    Level = "FULL"
)

// IsValid checks if the level is one of the supported enum values.
func (l Level) IsValid() bool {
	switch l {
	case LevelNone, LevelPartial, LevelFull:
		return true
	}
	return false
}

// Config is the immutable privacy policy, constructed once at startup.
type Config struct {
	// PrivacyEnabled gates all masking; when false Display returns the
	// normalized address regardless of level.
	PrivacyEnabled bool
	// AnonymizeReports applies masking to report/export output.
	AnonymizeReports bool
	// AuditEnabled gates the address audit trail entirely.
	AuditEnabled bool
	// Anonymization level used when privacy is enabled.
	Level Level
	// IPv4PreserveOctets is how many leading octets survive masking (1-4).
	IPv4PreserveOctets int
	// IPv6PreserveGroups is how many leading hex groups survive masking (1-8).
	IPv6PreserveGroups int
	// MaskChar is the character repeated to form mask tokens.
	MaskChar string
}

// DefaultConfig masks the last IPv4 octet and the IPv6 tail:
// 192.168.1.100 becomes 192.168.1.xxx.
func DefaultConfig() Config {
	return Config{
		PrivacyEnabled:     true,
		AnonymizeReports:   true,
		AuditEnabled:       true,
		Level:              LevelPartial,
		IPv4PreserveOctets: 3,
		IPv6PreserveGroups: 4,
		MaskChar:           "x",
	}
}

// genericMask replaces addresses in unrecognized formats, and is also the
// fixed literal returned at LevelFull.
const genericMask = "***"

const (
	minAddressLen = 7 // "1.1.1.1"
	maxAddressLen = 45
)

// Deny-list applied before anything reaches storage. Address literals never
// legitimately contain any of this.
var (
	maliciousCharPattern = regexp.MustCompile(`[<>"'&;\\|` + "`" + `$(){}\[\]*?~#%^!@+=]`)
	sqlKeywordPattern    = regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|execute)`)
	markupPattern        = regexp.MustCompile(`(?i)(script|iframe|object|embed|onload|onerror|onclick|javascript|vbscript)`)
	controlCharPattern   = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// Guard applies the configured privacy policy. It is safe for concurrent use;
// the config is never mutated after construction.
type Guard struct {
	cfg       Config
	publisher *Publisher
	logger    *slog.Logger
}

type GuardOption func(*Guard)

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// WithPublisher attaches the audit publisher; without one Audit is a no-op.
func WithPublisher(publisher *Publisher) GuardOption {
	return func(g *Guard) { g.publisher = publisher }
}

func NewGuard(cfg Config, opts ...GuardOption) *Guard {
	if cfg.MaskChar == "" {
		cfg.MaskChar = "x"
	}
	if cfg.IPv4PreserveOctets < 1 || cfg.IPv4PreserveOctets > 4 {
		cfg.IPv4PreserveOctets = 3
	}
	if cfg.IPv6PreserveGroups < 1 || cfg.IPv6PreserveGroups > 8 {
		cfg.IPv6PreserveGroups = 4
	}
	if !cfg.Level.IsValid() {
		cfg.Level = LevelPartial
	}

	g := &Guard{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the policy the guard was built with.
func (g *Guard) Config() Config { return g.cfg }

// Anonymize masks an address for privacy-compliant display. IPv4 keeps the
// leading octets and masks the rest; IPv6 keeps the leading hex groups,
// masks the rest, and preserves a `::` compression marker where the input
// used one. Unrecognized formats collapse to the generic mask. The unknown
// sentinel passes through so it is never mistaken for a masked address.
func (g *Guard) Anonymize(address string) string {
	formatted := ipaddr.Format(address)
	if formatted == ipaddr.Unknown {
		return ipaddr.Unknown
	}

	if ipaddr.IsIPv4(formatted) {
		return g.maskIPv4(formatted)
	}
	if strings.Contains(formatted, ":") && ipaddr.IsIPv6(formatted) {
		return g.maskIPv6(formatted)
	}
	return genericMask
}

func (g *Guard) maskIPv4(address string) string {
	octets := strings.Split(address, ".")
	token := strings.Repeat(g.cfg.MaskChar, 3)
	for i := g.cfg.IPv4PreserveOctets; i < len(octets); i++ {
		octets[i] = token
	}
	return strings.Join(octets, ".")
}

func (g *Guard) maskIPv6(address string) string {
	// Splitting on ":" keeps empty segments, so a `::` marker occupies a
	// position of its own. Preservation counts positions, marker included:
	// a hextet written after the compression is already past the preserved
	// prefix and gets masked.
	groups := strings.Split(address, ":")
	token := strings.Repeat(g.cfg.MaskChar, 4)

	for i := g.cfg.IPv6PreserveGroups; i < len(groups); i++ {
		if groups[i] == "" {
			continue
		}
		groups[i] = token
	}
	return strings.Join(groups, ":")
}

// Display renders an address for a viewer. respectPrivacy=false (internal
// diagnostics) and a disabled privacy mode both return the normalized
// address; otherwise the configured level decides.
func (g *Guard) Display(address string, respectPrivacy bool) string {
	if !respectPrivacy || !g.cfg.PrivacyEnabled {
		return ipaddr.Format(address)
	}

	switch g.cfg.Level {
	case LevelNone:
		return ipaddr.Format(address)
	case LevelPartial:
		return g.Anonymize(address)
	case LevelFull:
		if ipaddr.Format(address) == ipaddr.Unknown {
			return ipaddr.Unknown
		}
		return genericMask
	}
	return genericMask
}

// Sanitize is the single gate for address input headed to storage. It strips
// control characters, enforces length bounds, rejects deny-listed patterns,
// and requires the survivor to be a syntactically valid address. The unknown
// sentinel passes through unchanged. The result is stable:
// Sanitize(Sanitize(x)) returns Sanitize(x).
func (g *Guard) Sanitize(address string) (string, error) {
	cleaned := strings.TrimSpace(controlCharPattern.ReplaceAllString(address, ""))

	if cleaned == ipaddr.Unknown {
		return ipaddr.Unknown, nil
	}
	if cleaned == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "address is empty")
	}

	if len(cleaned) < minAddressLen || len(cleaned) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("address length must be between %d and %d characters", minAddressLen, maxAddressLen))
	}

	if maliciousCharPattern.MatchString(cleaned) ||
		sqlKeywordPattern.MatchString(cleaned) ||
		markupPattern.MatchString(cleaned) {
		g.logger.Warn("rejected address input matching deny-list pattern", "length", len(cleaned))
		return "", dErrors.New(dErrors.CodeSecurityRejected, "address contains disallowed characters")
	}

	if !ipaddr.IsValid(cleaned) {
		return "", dErrors.New(dErrors.CodeBadRequest, "address is not a valid IPv4 or IPv6 literal")
	}
	return cleaned, nil
}

// Audit records an address-data access or modification. It never fails the
// caller: with auditing disabled or no publisher wired it is a no-op, and
// emit problems are handled inside the publisher.
func (g *Guard) Audit(entry Entry) {
	if !g.cfg.AuditEnabled || g.publisher == nil {
		return
	}
	g.publisher.Emit(entry)
}

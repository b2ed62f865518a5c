package privacy

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"checkpoint/internal/ipaddr"
	dErrors "checkpoint/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
	guard *Guard
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.guard = NewGuard(DefaultConfig(), WithLogger(logger))
}

func (s *GuardSuite) TestAnonymizeIPv4() {
	s.Equal("192.168.1.xxx", s.guard.Anonymize("192.168.1.100"))
	s.Equal("10.0.0.xxx", s.guard.Anonymize("10.0.0.50"))
}

func (s *GuardSuite) TestAnonymizeIPv4PreserveOctets() {
	cfg := DefaultConfig()
	cfg.IPv4PreserveOctets = 2
	guard := NewGuard(cfg)
	s.Equal("192.168.xxx.xxx", guard.Anonymize("192.168.1.100"))
}

func (s *GuardSuite) TestAnonymizeIPv6() {
	s.Run("full form", func() {
		masked := s.guard.Anonymize("2001:0db8:85a3:0001:0002:8a2e:0370:7334")
		s.Equal("2001:0db8:85a3:0001:xxxx:xxxx:xxxx:xxxx", masked)
	})

	s.Run("compressed form counts the marker as a position", func() {
		masked := s.guard.Anonymize("2001:db8:85a3::8a2e:370:7334")
		s.Equal("2001:db8:85a3::xxxx:xxxx:xxxx", masked)
	})

	s.Run("uppercase input is normalized first", func() {
		masked := s.guard.Anonymize("2001:DB8:85A3::8A2E:370:7334")
		s.Equal("2001:db8:85a3::xxxx:xxxx:xxxx", masked)
	})
}

func (s *GuardSuite) TestAnonymizeDeterministic() {
	first := s.guard.Anonymize("192.168.1.100")
	second := s.guard.Anonymize("192.168.1.100")
	s.Equal(first, second)
}

func (s *GuardSuite) TestAnonymizeEdgeCases() {
	s.Run("sentinel passes through", func() {
		s.Equal(ipaddr.Unknown, s.guard.Anonymize(ipaddr.Unknown))
	})

	s.Run("empty becomes sentinel", func() {
		s.Equal(ipaddr.Unknown, s.guard.Anonymize(""))
	})

	s.Run("unrecognized format gets generic mask", func() {
		s.Equal("***", s.guard.Anonymize("not an address"))
	})

	s.Run("re-anonymizing masked output does not crash", func() {
		masked := s.guard.Anonymize("192.168.1.100")
		s.Equal("***", s.guard.Anonymize(masked))
	})
}

func (s *GuardSuite) TestDisplay() {
	s.Run("privacy not respected returns normalized", func() {
		s.Equal("192.168.1.100", s.guard.Display("192.168.1.100", false))
		s.Equal("2001:db8::1", s.guard.Display("2001:DB8::1", false))
	})

	s.Run("privacy disabled returns normalized", func() {
		cfg := DefaultConfig()
		cfg.PrivacyEnabled = false
		guard := NewGuard(cfg)
		s.Equal("192.168.1.100", guard.Display("192.168.1.100", true))
	})

	s.Run("level none behaves like privacy off", func() {
		cfg := DefaultConfig()
		cfg.Level = LevelNone
		guard := NewGuard(cfg)
		s.Equal("192.168.1.100", guard.Display("192.168.1.100", true))
	})

	s.Run("level partial anonymizes", func() {
		s.Equal("192.168.1.xxx", s.guard.Display("192.168.1.100", true))
	})

	s.Run("level full masks entirely", func() {
		cfg := DefaultConfig()
		cfg.Level = LevelFull
		guard := NewGuard(cfg)
		s.Equal("***", guard.Display("192.168.1.100", true))
		s.Equal(ipaddr.Unknown, guard.Display(ipaddr.Unknown, true))
	})
}

func (s *GuardSuite) TestSanitize() {
	s.Run("valid ipv4 passes", func() {
		sanitized, err := s.guard.Sanitize("192.168.1.100")
		s.Require().NoError(err)
		s.Equal("192.168.1.100", sanitized)
	})

	s.Run("whitespace trimmed", func() {
		sanitized, err := s.guard.Sanitize("  10.0.0.50  ")
		s.Require().NoError(err)
		s.Equal("10.0.0.50", sanitized)
	})

	s.Run("control characters stripped", func() {
		sanitized, err := s.guard.Sanitize("192.168.1.100\x00\x1f")
		s.Require().NoError(err)
		s.Equal("192.168.1.100", sanitized)
	})

	s.Run("sentinel passes through", func() {
		sanitized, err := s.guard.Sanitize(ipaddr.Unknown)
		s.Require().NoError(err)
		s.Equal(ipaddr.Unknown, sanitized)
	})

	s.Run("stable under repetition", func() {
		once, err := s.guard.Sanitize(" 2001:db8::1 ")
		s.Require().NoError(err)
		twice, err := s.guard.Sanitize(once)
		s.Require().NoError(err)
		s.Equal(once, twice)
	})
}

func (s *GuardSuite) TestSanitizeRejections() {
	s.Run("empty rejected", func() {
		_, err := s.guard.Sanitize("")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})

	s.Run("too short rejected", func() {
		_, err := s.guard.Sanitize("1.1.1")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})

	s.Run("short junk fails length bounds before pattern checks", func() {
		_, err := s.guard.Sanitize("<>'")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})

	s.Run("too long rejected", func() {
		_, err := s.guard.Sanitize("2001:db8:85a3:0000:0000:8a2e:0370:7334:0000:0000")
		s.Require().Error(err)
	})

	s.Run("sql keyword rejected as security violation", func() {
		_, err := s.guard.Sanitize("1.1.1.1 UNION SELECT")
		s.Require().Error(err)
		s.Equal(dErrors.CodeSecurityRejected, dErrors.CodeOf(err))
	})

	s.Run("markup rejected as security violation", func() {
		_, err := s.guard.Sanitize("<script>alert(1)</script>")
		s.Require().Error(err)
		s.Equal(dErrors.CodeSecurityRejected, dErrors.CodeOf(err))
	})

	s.Run("metacharacters rejected as security violation", func() {
		_, err := s.guard.Sanitize("1.1.1.1'; --")
		s.Require().Error(err)
		s.Equal(dErrors.CodeSecurityRejected, dErrors.CodeOf(err))
	})

	s.Run("valid length but not an address rejected", func() {
		_, err := s.guard.Sanitize("1234567890")
		s.Require().Error(err)
		s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	})
}

func TestNewGuardClampsConfig(t *testing.T) {
	guard := NewGuard(Config{
		PrivacyEnabled:     true,
		Level:              Level("BOGUS"),
		IPv4PreserveOctets: 99,
		IPv6PreserveGroups: -1,
	})
	cfg := guard.Config()
	require.Equal(t, LevelPartial, cfg.Level)
	assert.Equal(t, 3, cfg.IPv4PreserveOctets)
	assert.Equal(t, 4, cfg.IPv6PreserveGroups)
	assert.Equal(t, "x", cfg.MaskChar)
}

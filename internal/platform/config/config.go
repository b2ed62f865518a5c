package config

import (
	"os"
	"strconv"
	"time"

	"checkpoint/internal/privacy"
)

// Config captures everything main needs to wire the service, built once from
// the environment.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	LogLevel      string

	Privacy           privacy.Config
	TrackingEnabled   bool
	RetentionDays     int
	RetentionInterval time.Duration
	AuditBuffer       int
}

// FromEnv builds a Config from environment variables so main stays lean.
// Every knob has a working default; only DATABASE_URL is required for the
// postgres-backed mode.
func FromEnv() Config {
	p := privacy.DefaultConfig()
	p.PrivacyEnabled = envBool("PRIVACY_ENABLED", p.PrivacyEnabled)
	p.AnonymizeReports = envBool("ANONYMIZE_REPORTS", p.AnonymizeReports)
	p.AuditEnabled = envBool("AUDIT_ENABLED", p.AuditEnabled)
	if level := os.Getenv("ANONYMIZATION_LEVEL"); level != "" {
		p.Level = privacy.Level(level)
	}
	p.IPv4PreserveOctets = envInt("IPV4_PRESERVE_OCTETS", p.IPv4PreserveOctets)
	p.IPv6PreserveGroups = envInt("IPV6_PRESERVE_GROUPS", p.IPv6PreserveGroups)
	if mask := os.Getenv("MASK_CHARACTER"); mask != "" {
		p.MaskChar = mask
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Addr:              envString("ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSigningKey:     jwtSigningKey,
		LogLevel:          envString("LOG_LEVEL", "info"),
		Privacy:           p,
		TrackingEnabled:   envBool("TRACKING_ENABLED", true),
		RetentionDays:     envInt("RETENTION_DAYS", 90),
		RetentionInterval: envDuration("RETENTION_SWEEP_INTERVAL", 24*time.Hour),
		AuditBuffer:       envInt("AUDIT_BUFFER", 256),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// Package compliance classifies an observed client address against a person's
// assigned-address list.
package compliance

import (
	"fmt"
	"strings"

	"checkpoint/internal/ipaddr"
	dErrors "checkpoint/pkg/domain-errors"
)

// Status is the relationship between an observed address and an assignment.
// The set is closed; add a variant only together with every switch over it.
type Status string

const (
	// StatusMatch: the observed address is one of the assigned addresses.
	StatusMatch Status = "MATCH"
	// StatusMismatch: the person has an assignment and the observed address
	// is not in it.
	StatusMismatch Status = "MISMATCH"
	// StatusNoAssignment: the person has no assigned addresses; nothing to
	// check against. This is not a violation.
	StatusNoAssignment Status = "NO_ASSIGNMENT"
	// StatusUnknownAddress: no usable address was captured for the event, so
	// no comparison is possible.
	StatusUnknownAddress Status = "UNKNOWN_ADDRESS"
)

func (s Status) String() string { return string(s) }

// maxAssignedAddresses bounds a single person's assignment list.
const maxAssignedAddresses = 10

// ParseAssigned splits a raw assignment string on commas and semicolons,
// trims whitespace, and drops empty segments. Order follows first occurrence;
// duplicates are preserved.
func ParseAssigned(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	parsed := make([]string, 0, len(segments))
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}
		parsed = append(parsed, trimmed)
	}
	return parsed
}

// Classify determines the compliance status of an observed address against a
// raw assignment string. Exactly one status is returned for any input pair;
// the checks run in priority order and the first that applies wins.
func Classify(observed, assignedRaw string) Status {
	if strings.TrimSpace(assignedRaw) == "" {
		return StatusNoAssignment
	}
	if strings.TrimSpace(observed) == "" || ipaddr.Format(observed) == ipaddr.Unknown {
		return StatusUnknownAddress
	}

	formatted := ipaddr.Format(observed)
	for _, assigned := range ParseAssigned(assignedRaw) {
		if ipaddr.Format(assigned) == formatted {
			return StatusMatch
		}
	}
	return StatusMismatch
}

// ValidateAssigned reports whether every element of a raw assignment string
// is independently a valid IPv4 or IPv6 literal. An empty assignment is
// valid: it means "no constraint", not "deny all".
func ValidateAssigned(raw string) error {
	for _, addr := range ParseAssigned(raw) {
		if !ipaddr.IsValid(addr) {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("invalid address in assignment: %s", addr))
		}
	}
	return nil
}

// ValidateAssignedStrict applies the admin-surface rules on top of
// ValidateAssigned: no duplicates and at most maxAssignedAddresses elements.
func ValidateAssignedStrict(raw string) error {
	if err := ValidateAssigned(raw); err != nil {
		return err
	}
	parsed := ParseAssigned(raw)
	if len(parsed) > maxAssignedAddresses {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("too many assigned addresses (max %d, found %d)", maxAssignedAddresses, len(parsed)))
	}
	seen := make(map[string]struct{}, len(parsed))
	for _, addr := range parsed {
		key := ipaddr.Format(addr)
		if _, dup := seen[key]; dup {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("duplicate address in assignment: %s", addr))
		}
		seen[key] = struct{}{}
	}
	return nil
}

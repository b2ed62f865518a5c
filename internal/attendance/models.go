package attendance

import (
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/dailycode"
)

// Record is one immutable entry or exit event. The address field holds the
// sanitized observed network address, which may be the unknown sentinel.
type Record struct {
	ID        uuid.UUID
	PersonID  int64
	Kind      dailycode.Kind
	Timestamp time.Time
	Latitude  float64
	Longitude float64
	Address   string
}

// Presence is the derived inside/outside state of a person.
type Presence string

const (
	PresenceInside  Presence = "INSIDE"
	PresenceOutside Presence = "OUTSIDE"
)

// Reason identifies why a redemption was refused. Values are stable: they
// appear verbatim in API responses and metric labels.
type Reason string

const (
	ReasonInvalidGPS    Reason = "invalid_gps"
	ReasonCodeNotFound  Reason = "code_not_found"
	ReasonWrongOwner    Reason = "wrong_owner"
	ReasonNotValidToday Reason = "not_valid_today"
	ReasonExhausted     Reason = "code_exhausted"
)

// ValidGPS reports whether both coordinates are present and inside the
// plausible range: latitude [-90, 90], longitude [-180, 180].
func ValidGPS(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	if *lat < -90 || *lat > 90 {
		return false
	}
	if *lon < -180 || *lon > 180 {
		return false
	}
	return true
}

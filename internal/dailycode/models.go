package dailycode

import "time"

// Kind is the direction an attendance event records.
type Kind string

const (
	KindEntry Kind = "ENTRY"
	KindExit  Kind = "EXIT"
)

func (k Kind) IsValid() bool {
	return k == KindEntry || k == KindExit
}

// MaxUsagePerDay caps redemptions of a single code: one entry, one exit.
const MaxUsagePerDay = 2

// DailyCode is a person's single-use-pair credential for one calendar day.
// The value rotates daily and is unique across all persons.
type DailyCode struct {
	PersonID   int64
	CodeValue  string
	ValidDate  time.Time
	UsageCount int
}

// Exhausted reports whether both uses have been consumed.
func (c DailyCode) Exhausted() bool {
	return c.UsageCount >= MaxUsagePerDay
}

// NextKind returns the direction the next redemption would record.
func (c DailyCode) NextKind() (Kind, bool) {
	switch c.UsageCount {
	case 0:
		return KindEntry, true
	case 1:
		return KindExit, true
	default:
		return "", false
	}
}

// Outcome classifies a redemption validation result.
type Outcome string

const (
	OutcomeOK            Outcome = "OK"
	OutcomeNotFound      Outcome = "NOT_FOUND"
	OutcomeWrongOwner    Outcome = "WRONG_OWNER"
	OutcomeNotValidToday Outcome = "NOT_VALID_TODAY"
	OutcomeExhausted     Outcome = "EXHAUSTED"
)

// Validation is the outcome of checking a code against a person and the
// current day. Code and NextKind are populated only for OutcomeOK.
type Validation struct {
	Outcome  Outcome
	NextKind Kind
	Code     *DailyCode
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"checkpoint/internal/compliance"
	"checkpoint/internal/dailycode"
	"checkpoint/internal/ipaddr"
	"checkpoint/internal/privacy"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/platform/tx"
	"checkpoint/pkg/requestcontext"
)

// Metrics counts redemption outcomes. The platform metrics package provides
// the Prometheus-backed implementation.
type Metrics interface {
	RecordRedemption(kind dailycode.Kind)
	RecordRejection(reason Reason)
	RecordCompliance(status compliance.Status)
}

type noopMetrics struct{}

func (noopMetrics) RecordRedemption(dailycode.Kind)    {}
func (noopMetrics) RecordRejection(Reason)             {}
func (noopMetrics) RecordCompliance(compliance.Status) {}

// rejection travels inside a domain error chain and carries the stable
// refusal reason for the HTTP layer and metrics.
type rejection struct {
	reason Reason
}

func (r rejection) Error() string { return string(r.reason) }

func reject(code dErrors.Code, reason Reason, message string) error {
	return dErrors.Wrap(rejection{reason: reason}, code, message)
}

// ReasonOf extracts the refusal reason from an error chain, if any.
func ReasonOf(err error) (Reason, bool) {
	var r rejection
	if errors.As(err, &r) {
		return r.reason, true
	}
	return "", false
}

// Service records entry and exit events. A redemption validates the daily
// code, persists the record, and consumes one use, all inside a single
// transaction.
type Service struct {
	codes       *dailycode.Service
	store       Store
	runner      tx.Runner
	guard       *privacy.Guard
	assignments AssignmentSource
	metrics     Metrics
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewService(codes *dailycode.Service, store Store, runner tx.Runner, guard *privacy.Guard, assignments AssignmentSource, opts ...Option) *Service {
	s := &Service{
		codes:       codes,
		store:       store,
		runner:      runner,
		guard:       guard,
		assignments: assignments,
		metrics:     noopMetrics{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record redeems a daily code into an entry or exit event. GPS coordinates
// are checked before anything is persisted; the observed network address is
// sanitized and degrades to the unknown sentinel rather than failing the
// redemption. Validation, record insert, and usage increment commit or roll
// back as a unit.
func (s *Service) Record(ctx context.Context, personID int64, codeValue string, eventTime time.Time, lat, lon *float64) (*Record, error) {
	if !ValidGPS(lat, lon) {
		err := reject(dErrors.CodeBadRequest, ReasonInvalidGPS, "GPS coordinates missing or out of range")
		s.metrics.RecordRejection(ReasonInvalidGPS)
		return nil, err
	}
	if eventTime.IsZero() {
		eventTime = requestcontext.Now(ctx)
	}
	address := s.sanitizedClientAddress(ctx, personID)

	record, err := s.redeem(ctx, personID, codeValue, eventTime, *lat, *lon, address)
	if err != nil {
		if reason, ok := ReasonOf(err); ok {
			s.metrics.RecordRejection(reason)
		}
		return nil, err
	}

	s.metrics.RecordRedemption(record.Kind)
	s.classify(ctx, personID, record.Address)
	s.guard.Audit(privacy.Entry{
		PersonID: &personID,
		Address:  record.Address,
		Action:   privacy.ActionAccess,
		Details:  fmt.Sprintf("%s recorded", record.Kind),
	})
	return record, nil
}

// redeem runs the transactional core. A lost race surfaces as a conflict and
// is retried once against fresh state.
func (s *Service) redeem(ctx context.Context, personID int64, codeValue string, eventTime time.Time, lat, lon float64, address string) (*Record, error) {
	var record *Record
	attempt := func(ctx context.Context) error {
		validation, err := s.codes.ValidateForRedemptionLocked(ctx, codeValue, personID)
		if err != nil {
			return err
		}
		switch validation.Outcome {
		case dailycode.OutcomeNotFound:
			return reject(dErrors.CodeNotFound, ReasonCodeNotFound, "daily code not found")
		case dailycode.OutcomeWrongOwner:
			return reject(dErrors.CodeForbidden, ReasonWrongOwner, "daily code belongs to another person")
		case dailycode.OutcomeNotValidToday:
			return reject(dErrors.CodeBadRequest, ReasonNotValidToday, "daily code not valid today")
		case dailycode.OutcomeExhausted:
			return reject(dErrors.CodeExhausted, ReasonExhausted, "daily code already used twice")
		}

		r := Record{
			ID:        uuid.New(),
			PersonID:  personID,
			Kind:      validation.NextKind,
			Timestamp: eventTime,
			Latitude:  lat,
			Longitude: lon,
			Address:   address,
		}
		if err := s.store.Insert(ctx, r); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist attendance record")
		}
		if _, err := s.codes.IncrementUsage(ctx, codeValue); err != nil {
			return err
		}
		record = &r
		return nil
	}

	err := s.runner.RunInTx(ctx, attempt)
	if err != nil && isRetryable(err) {
		s.logger.Info("redemption lost a race, retrying once", "person_id", personID)
		err = s.runner.RunInTx(ctx, attempt)
	}
	if err != nil {
		if isRetryable(err) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "redemption conflicted with a concurrent request")
		}
		return nil, err
	}
	return record, nil
}

// CurrentStatus derives inside/outside from the latest recorded event. A
// person with no records is outside.
func (s *Service) CurrentStatus(ctx context.Context, personID int64) (Presence, error) {
	latest, err := s.store.LatestByPerson(ctx, personID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return PresenceOutside, nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load latest attendance record")
	}
	if latest.Kind == dailycode.KindEntry {
		return PresenceInside, nil
	}
	return PresenceOutside, nil
}

// ListByPerson returns a person's records with addresses rendered through the
// privacy guard. The access is audit-logged as a VIEW.
func (s *Service) ListByPerson(ctx context.Context, personID int64, from, to time.Time) ([]Record, error) {
	records, err := s.store.ListByPerson(ctx, personID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list attendance records")
	}
	for i := range records {
		records[i].Address = s.guard.Display(records[i].Address, true)
	}
	var adminRef *int64
	if id := requestcontext.AdminID(ctx); id != 0 {
		adminRef = &id
	}
	s.guard.Audit(privacy.Entry{
		PersonID: &personID,
		Action:   privacy.ActionView,
		AdminID:  adminRef,
		Details:  fmt.Sprintf("listed %d attendance records", len(records)),
	})
	return records, nil
}

// sanitizedClientAddress pulls the observed address from the request context
// and sanitizes it. Rejected input degrades to the unknown sentinel; a
// security rejection is additionally audit-logged.
func (s *Service) sanitizedClientAddress(ctx context.Context, personID int64) string {
	observed := requestcontext.ClientAddr(ctx)
	address, err := s.guard.Sanitize(observed)
	if err == nil {
		return address
	}
	if dErrors.CodeOf(err) == dErrors.CodeSecurityRejected {
		s.guard.Audit(privacy.Entry{
			PersonID: &personID,
			Address:  ipaddr.Unknown,
			Action:   privacy.ActionAccess,
			Details:  "observed address rejected by sanitizer",
		})
	}
	return ipaddr.Unknown
}

// classify compares the observed address with the person's assignment and
// counts the result. Runs after commit; failures never affect the redemption.
func (s *Service) classify(ctx context.Context, personID int64, address string) {
	assignedRaw, err := s.assignments.AssignedAddresses(ctx, personID)
	if err != nil {
		s.logger.Warn("assigned addresses unavailable", "person_id", personID, "error", err)
		return
	}
	status := compliance.Classify(address, assignedRaw)
	s.metrics.RecordCompliance(status)
	if status == compliance.StatusMismatch {
		s.logger.Warn("attendance from unassigned address",
			"person_id", personID,
			"address", s.guard.Anonymize(address),
		)
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, sentinel.ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

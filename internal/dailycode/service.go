package dailycode

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Service manages the lifecycle of per-person daily codes: creation on first
// request, validation against the current day, and usage accounting.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateToday returns the person's code for the current day, minting one
// when none exists. Concurrent first requests converge on a single code: the
// loser of the creation race re-reads the winner's row.
func (s *Service) GetOrCreateToday(ctx context.Context, personID int64) (*DailyCode, error) {
	day := DateOf(requestcontext.Now(ctx))

	existing, err := s.store.GetByPersonAndDate(ctx, personID, day)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load daily code")
	}

	value, err := generateCodeValue(personID, day)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate daily code")
	}
	code := DailyCode{
		PersonID:  personID,
		CodeValue: value,
		ValidDate: day,
	}
	if err := s.store.Create(ctx, code); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			winner, readErr := s.store.GetByPersonAndDate(ctx, personID, day)
			if readErr != nil {
				return nil, dErrors.Wrap(readErr, dErrors.CodeInternal, "reload daily code after create race")
			}
			return winner, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create daily code")
	}
	s.logger.Info("daily code created", "person_id", personID, "valid_date", day.Format("2006-01-02"))
	return &code, nil
}

// ValidateForRedemption checks a submitted code without consuming a use.
// Business outcomes are reported in the Validation value; only infrastructure
// failures surface as errors.
func (s *Service) ValidateForRedemption(ctx context.Context, codeValue string, personID int64) (Validation, error) {
	return s.validate(ctx, codeValue, personID, s.store.GetByValue)
}

// ValidateForRedemptionLocked is the transactional variant: the code row stays
// locked until the surrounding transaction ends.
func (s *Service) ValidateForRedemptionLocked(ctx context.Context, codeValue string, personID int64) (Validation, error) {
	return s.validate(ctx, codeValue, personID, s.store.GetByValueForUpdate)
}

func (s *Service) validate(ctx context.Context, codeValue string, personID int64, lookup func(context.Context, string) (*DailyCode, error)) (Validation, error) {
	code, err := lookup(ctx, codeValue)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Validation{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Validation{}, dErrors.Wrap(err, dErrors.CodeInternal, "load daily code")
	}
	if code.PersonID != personID {
		return Validation{Outcome: OutcomeWrongOwner}, nil
	}
	if !code.ValidDate.Equal(DateOf(requestcontext.Now(ctx))) {
		return Validation{Outcome: OutcomeNotValidToday}, nil
	}
	next, ok := code.NextKind()
	if !ok {
		return Validation{Outcome: OutcomeExhausted}, nil
	}
	return Validation{Outcome: OutcomeOK, NextKind: next, Code: code}, nil
}

// IncrementUsage consumes one use of the code. The store performs the check
// and the bump as a single conditional operation, so the counter cannot pass
// the cap under concurrency.
func (s *Service) IncrementUsage(ctx context.Context, codeValue string) (int, error) {
	count, err := s.store.IncrementUsage(ctx, codeValue)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExhausted):
			return count, dErrors.Wrap(err, dErrors.CodeExhausted, "daily code exhausted")
		case errors.Is(err, sentinel.ErrNotFound):
			return 0, dErrors.Wrap(err, dErrors.CodeNotFound, "daily code not found")
		default:
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "increment daily code usage")
		}
	}
	return count, nil
}

func generateCodeValue(personID int64, day time.Time) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	material := fmt.Sprintf("%d|%s|%s",
		personID,
		day.Format("2006-01-02"),
		base64.StdEncoding.EncodeToString(salt),
	)
	sum := sha256.Sum256([]byte(material))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

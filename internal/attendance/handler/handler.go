// Package handler exposes the attendance HTTP endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"checkpoint/internal/attendance"
	"checkpoint/internal/dailycode"
	"checkpoint/internal/transport/http/shared"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/requestcontext"
)

// CodeService issues daily codes.
type CodeService interface {
	GetOrCreateToday(ctx context.Context, personID int64) (*dailycode.DailyCode, error)
}

// RecorderService records redemptions and reports presence.
type RecorderService interface {
	Record(ctx context.Context, personID int64, codeValue string, eventTime time.Time, lat, lon *float64) (*attendance.Record, error)
	CurrentStatus(ctx context.Context, personID int64) (attendance.Presence, error)
}

// Handler is the thin HTTP layer over the code and recorder services.
type Handler struct {
	logger   *slog.Logger
	codes    CodeService
	recorder RecorderService
}

func New(codes CodeService, recorder RecorderService, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		codes:    codes,
		recorder: recorder,
	}
}

// Register wires the attendance routes. Callers mount auth middleware around
// these; every route requires an authenticated person.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/daily-code", h.handleDailyCode)
	r.Post("/api/attendance", h.handleRecord)
	r.Get("/api/attendance/status", h.handleStatus)
}

type dailyCodeResponse struct {
	CodeValue  string `json:"codeValue"`
	ValidDate  string `json:"validDate"`
	UsageCount int    `json:"usageCount"`
	MaxUsage   int    `json:"maxUsage"`
}

func (h *Handler) handleDailyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, ctx)
	if !ok {
		return
	}

	code, err := h.codes.GetOrCreateToday(ctx, personID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue daily code",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue daily code"), "")
		return
	}

	shared.WriteJSON(w, http.StatusOK, dailyCodeResponse{
		CodeValue:  code.CodeValue,
		ValidDate:  code.ValidDate.Format("2006-01-02"),
		UsageCount: code.UsageCount,
		MaxUsage:   dailycode.MaxUsagePerDay,
	})
}

type recordRequest struct {
	CodeValue string     `json:"codeValue"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
}

type recordResponse struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, ctx)
	if !ok {
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid attendance request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"), "")
		return
	}

	var eventTime time.Time
	if req.Timestamp != nil {
		eventTime = *req.Timestamp
	}

	record, err := h.recorder.Record(ctx, personID, req.CodeValue, eventTime, req.Latitude, req.Longitude)
	if err != nil {
		if reason, rejected := attendance.ReasonOf(err); rejected {
			h.logger.WarnContext(ctx, "redemption refused",
				"request_id", requestcontext.RequestID(ctx),
				"reason", string(reason),
			)
			shared.WriteError(w, err, string(reason))
			return
		}
		h.logger.ErrorContext(ctx, "failed to record attendance",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to record attendance"), "")
		return
	}

	shared.WriteJSON(w, http.StatusCreated, recordResponse{
		Kind:      string(record.Kind),
		Timestamp: record.Timestamp,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
	})
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	personID, ok := h.personID(w, ctx)
	if !ok {
		return
	}

	presence, err := h.recorder.CurrentStatus(ctx, personID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to derive presence",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to derive presence"), "")
		return
	}

	shared.WriteJSON(w, http.StatusOK, statusResponse{Status: string(presence)})
}

// personID pulls the authenticated person from the context. Absence means the
// auth middleware is misconfigured.
func (h *Handler) personID(w http.ResponseWriter, ctx context.Context) (int64, bool) {
	personID := requestcontext.PersonID(ctx)
	if personID == 0 {
		h.logger.ErrorContext(ctx, "person id missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"), "")
		return 0, false
	}
	return personID, true
}

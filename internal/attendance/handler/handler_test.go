package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"checkpoint/internal/attendance"
	"checkpoint/internal/dailycode"
	"checkpoint/internal/privacy"
	"checkpoint/pkg/platform/tx"
	"checkpoint/pkg/requestcontext"
)

// HandlerSuite drives the endpoints against real in-memory services; no
// mocks, same wiring as production minus postgres.
type HandlerSuite struct {
	suite.Suite
	router     chi.Router
	codes      *dailycode.Service
	now        time.Time
	clientAddr string
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	codeStore := dailycode.NewMemoryStore()
	s.codes = dailycode.NewService(codeStore, dailycode.WithLogger(logger))
	guard := privacy.NewGuard(privacy.DefaultConfig(), privacy.WithLogger(logger))
	recorder := attendance.NewService(
		s.codes,
		attendance.NewMemoryStore(),
		&tx.PassthroughRunner{},
		guard,
		attendance.NewMemoryAssignments(),
		attendance.WithLogger(logger),
	)

	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.clientAddr = "192.168.1.100"

	s.router = chi.NewRouter()
	s.router.Use(s.testContext)
	New(s.codes, recorder, logger).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

// testContext stands in for the auth, client address, and request time
// middleware. The person is taken from a test header.
func (s *HandlerSuite) testContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if person := r.Header.Get("X-Test-Person"); person != "" {
			var id int64
			fmt.Sscanf(person, "%d", &id)
			ctx = requestcontext.WithPersonID(ctx, id)
		}
		ctx = requestcontext.WithClientAddr(ctx, s.clientAddr)
		ctx = requestcontext.WithTime(ctx, s.now)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HandlerSuite) request(method, path string, personID int64, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if personID != 0 {
		r.Header.Set("X-Test-Person", fmt.Sprintf("%d", personID))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(w.Body).Decode(v))
}

func (s *HandlerSuite) issueCode(personID int64) string {
	w := s.request(http.MethodGet, "/api/daily-code", personID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp map[string]any
	s.decode(w, &resp)
	return resp["codeValue"].(string)
}

func recordBody(codeValue string, lat, lon *float64) map[string]any {
	body := map[string]any{"codeValue": codeValue}
	if lat != nil {
		body["latitude"] = *lat
	}
	if lon != nil {
		body["longitude"] = *lon
	}
	return body
}

func coord(v float64) *float64 { return &v }

func (s *HandlerSuite) TestDailyCodeEndpoint() {
	w := s.request(http.MethodGet, "/api/daily-code", 42, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp map[string]any
	s.decode(w, &resp)
	s.NotEmpty(resp["codeValue"])
	s.Equal("2026-03-14", resp["validDate"])
	s.Equal(float64(0), resp["usageCount"])
	s.Equal(float64(2), resp["maxUsage"])

	again := s.request(http.MethodGet, "/api/daily-code", 42, nil)
	var repeat map[string]any
	s.decode(again, &repeat)
	s.Equal(resp["codeValue"], repeat["codeValue"], "same day yields the same code")
}

func (s *HandlerSuite) TestRecordEntryThenExit() {
	value := s.issueCode(1)

	w := s.request(http.MethodPost, "/api/attendance", 1, recordBody(value, coord(41.0), coord(29.0)))
	s.Require().Equal(http.StatusCreated, w.Code)
	var first map[string]any
	s.decode(w, &first)
	s.Equal("ENTRY", first["kind"])
	s.Equal(41.0, first["latitude"])

	w = s.request(http.MethodPost, "/api/attendance", 1, recordBody(value, coord(41.0), coord(29.0)))
	s.Require().Equal(http.StatusCreated, w.Code)
	var second map[string]any
	s.decode(w, &second)
	s.Equal("EXIT", second["kind"])
}

func (s *HandlerSuite) TestRecordRejections() {
	value := s.issueCode(2)

	cases := []struct {
		name       string
		personID   int64
		body       map[string]any
		wantStatus int
		wantReason string
	}{
		{
			name:       "missing coordinates",
			personID:   2,
			body:       recordBody(value, nil, coord(29.0)),
			wantStatus: http.StatusBadRequest,
			wantReason: "invalid_gps",
		},
		{
			name:       "latitude out of range",
			personID:   2,
			body:       recordBody(value, coord(95.0), coord(29.0)),
			wantStatus: http.StatusBadRequest,
			wantReason: "invalid_gps",
		},
		{
			name:       "unknown code",
			personID:   2,
			body:       recordBody("bogus", coord(41.0), coord(29.0)),
			wantStatus: http.StatusNotFound,
			wantReason: "code_not_found",
		},
		{
			name:       "someone else's code",
			personID:   3,
			body:       recordBody(value, coord(41.0), coord(29.0)),
			wantStatus: http.StatusForbidden,
			wantReason: "wrong_owner",
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			w := s.request(http.MethodPost, "/api/attendance", tc.personID, tc.body)
			s.Require().Equal(tc.wantStatus, w.Code)
			var resp map[string]any
			s.decode(w, &resp)
			s.Equal(tc.wantReason, resp["reason"])
		})
	}
}

func (s *HandlerSuite) TestRecordExhaustedCode() {
	value := s.issueCode(4)

	for i := 0; i < 2; i++ {
		w := s.request(http.MethodPost, "/api/attendance", 4, recordBody(value, coord(41.0), coord(29.0)))
		s.Require().Equal(http.StatusCreated, w.Code)
	}

	w := s.request(http.MethodPost, "/api/attendance", 4, recordBody(value, coord(41.0), coord(29.0)))
	s.Require().Equal(http.StatusConflict, w.Code)
	var resp map[string]any
	s.decode(w, &resp)
	s.Equal("code_exhausted", resp["reason"])
}

func (s *HandlerSuite) TestRecordInvalidBody() {
	r := httptest.NewRequest(http.MethodPost, "/api/attendance", bytes.NewBufferString("{not json"))
	r.Header.Set("X-Test-Person", "5")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestStatusEndpoint() {
	w := s.request(http.MethodGet, "/api/attendance/status", 6, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp map[string]any
	s.decode(w, &resp)
	s.Equal("OUTSIDE", resp["status"])

	value := s.issueCode(6)
	s.request(http.MethodPost, "/api/attendance", 6, recordBody(value, coord(41.0), coord(29.0)))

	w = s.request(http.MethodGet, "/api/attendance/status", 6, nil)
	s.decode(w, &resp)
	s.Equal("INSIDE", resp["status"])
}

func (s *HandlerSuite) TestUnauthenticatedRequestFails() {
	w := s.request(http.MethodGet, "/api/daily-code", 0, nil)
	s.Equal(http.StatusInternalServerError, w.Code)
}

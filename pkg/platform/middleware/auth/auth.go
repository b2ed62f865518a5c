// Package auth identifies the calling person from a bearer token.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"checkpoint/pkg/requestcontext"
)

// Claims are the token claims this service reads. The subject is the person
// ID; admin_id is present only on administrative tokens.
type Claims struct {
	AdminID int64 `json:"admin_id,omitempty"`
	jwt.RegisteredClaims
}

// Middleware rejects requests without a valid HMAC-signed bearer token and
// stores the person (and, when present, admin) ID in the request context.
func Middleware(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			personID, adminID, err := parseToken(token, signingKey)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithPersonID(r.Context(), personID)
			if adminID != 0 {
				ctx = requestcontext.WithAdminID(ctx, adminID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseToken(tokenString string, signingKey []byte) (personID, adminID int64, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return signingKey, nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return 0, 0, fmt.Errorf("token invalid")
	}
	personID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || personID <= 0 {
		return 0, 0, fmt.Errorf("subject is not a person id: %q", claims.Subject)
	}
	return personID, claims.AdminID, nil
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}

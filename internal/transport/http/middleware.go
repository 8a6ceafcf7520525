package httptransport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	id "fieldproof/pkg/domain"
	"fieldproof/pkg/requestcontext"
)

// identityClaims are the trusted claims the engine consumes. Authentication
// happens upstream; this middleware only verifies the signature and lifts the
// claims into the request context.
type identityClaims struct {
	Role         string `json:"role"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	jwt.RegisteredClaims
}

// Authenticate validates the bearer token and stores the actor identity.
// Requests without a valid token proceed unauthenticated; the authorization
// guard denies them per-operation, so public endpoints need no carve-outs.
func Authenticate(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims := &identityClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				logger.WarnContext(r.Context(), "invalid bearer token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			userID, err := id.ParseUserID(claims.Subject)
			if err != nil {
				logger.WarnContext(r.Context(), "token subject is not a user id", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestcontext.WithActor(r.Context(), requestcontext.Identity{
				UserID:       userID,
				Role:         id.Role(claims.Role),
				Jurisdiction: claims.Jurisdiction,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestMetadata copies the chi request id and arrival time into the
// request context used by services and the audit recorder.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

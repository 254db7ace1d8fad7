package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agendohealth/agenda-api/internal/tenancy"
)

type contextKey string

const sessionClaimsKey contextKey = "sessionClaims"

// SessionClaims are the HMAC-signed JWT claims a signed-in clinic user
// carries. ClinicID becomes the request's tenancy scope.
type SessionClaims struct {
	jwt.RegisteredClaims
	ClinicID string `json:"clinic_id"`
	UserID   string `json:"user_id,omitempty"`
}

// SessionJWT enforces a signed session token on mutation endpoints and
// stores the token's clinic id in the request context. Requests without a
// clinic claim are rejected: every mutation is tenant-scoped.
func SessionJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if claims.ClinicID == "" {
				http.Error(w, "token missing clinic scope", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
			ctx = tenancy.WithClinicID(ctx, claims.ClinicID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionClaimsFromContext returns the session claims if present.
func SessionClaimsFromContext(ctx context.Context) (SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(SessionClaims)
	return claims, ok
}

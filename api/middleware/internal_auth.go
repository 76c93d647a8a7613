package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/payouts-backend/api/responses"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

const operatorHeader = "X-Operator"

// InternalToken admits requests carrying "Authorization: Bearer <token>".
// An empty configured token rejects everything.
func InternalToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			provided, ok := bearerToken(r.Header.Get("Authorization"))
			if len(expected) == 0 || !ok || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "remote_addr", clientIP(r)), "internal.auth.rejected")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid internal token"))
				return
			}

			operator := strings.TrimSpace(r.Header.Get(operatorHeader))
			if operator == "" {
				operator = "unknown"
			}
			ctx = WithOperator(ctx, operator)
			if logg != nil {
				ctx = logg.WithField(ctx, "operator", operator)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

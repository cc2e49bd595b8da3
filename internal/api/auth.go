package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pawlink/vet-scheduling/internal/booking"
)

const actorKey contextKey = "actor"

// AuthMiddleware resolves the acting principal from a Bearer token. Claims:
// `sub` is the principal's uuid, `role` is owner, vet, or admin. Menu hiding
// in any client is presentation only; this is the authorization input.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
				return
			}

			token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid_token", "unexpected claims")
				return
			}

			sub, err := claims.GetSubject()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "missing subject")
				return
			}
			id, err := uuid.Parse(sub)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "subject must be a uuid")
				return
			}

			role, _ := claims["role"].(string)
			switch booking.Role(role) {
			case booking.RoleOwner, booking.RoleVet, booking.RoleAdmin:
			default:
				writeError(w, http.StatusUnauthorized, "invalid_token", "unknown role")
				return
			}

			actor := booking.Actor{ID: id, Role: booking.Role(role)}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the authenticated principal stored by AuthMiddleware.
func ActorFrom(ctx context.Context) (booking.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(booking.Actor)
	return actor, ok
}

package httpx

import (
	"context"
	"net/http"

	"github.com/pasarhemat/pasar-surplus.git/internal/market"
)

type identityKey struct{}

// RequireIdentity lifts the gateway-provided identity headers into the
// request context. Tanpa X-User-Id -> 401; auth mechanics sendiri bukan
// urusan service ini.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errBody{Success: false, Message: "missing identity", Code: string(market.KindUnauthenticated)})
			return
		}
		role := market.Role(r.Header.Get("X-User-Role"))
		switch role {
		case market.RoleBuyer, market.RoleSeller, market.RoleAdmin:
		default:
			role = market.RoleBuyer
		}
		ctx := context.WithValue(r.Context(), identityKey{}, market.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) market.Identity {
	id, _ := ctx.Value(identityKey{}).(market.Identity)
	return id
}

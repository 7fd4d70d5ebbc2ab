package auth

import (
	"net/http"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// PrincipalMiddleware exposes exactly one principal per request for the
// authorization layer. With a trusted header configured (SSO proxy
// mode), the header value is stored as a bare username string; a
// signed-in session yields a SessionPrincipal credential; otherwise the
// request stays anonymous.
func PrincipalMiddleware(trustedHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if trustedHeader != "" {
				if name := strings.TrimSpace(r.Header.Get(trustedHeader)); name != "" {
					next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(ctx, name)))
					return
				}
			}
			if sess := shared.SessionFromContext(ctx); sess != nil {
				if username := sess.User(); username != "" {
					principal := SessionPrincipal{Username: username, SessionID: sess.ID}
					next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(ctx, principal)))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

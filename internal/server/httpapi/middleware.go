package httpapi

import (
	"net/http"
	"strings"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/auth"
	"github.com/anandakmagar/authguard/internal/server/repositories/users"
)

// Authenticator turns a bearer token in the Authorization header into a
// request-scoped Identity. It never rejects a request itself: any failure
// simply forwards the request unauthenticated and leaves the final decision
// to the authorization policy.
type Authenticator struct {
	tokens *auth.TokenService
	users  users.Repository
	logger logging.Logger
}

// NewAuthenticator constructs the middleware with its collaborators.
func NewAuthenticator(tokens *auth.TokenService, users users.Repository, logger logging.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		logger: logger.With("module", "auth_middleware"),
	}
}

// Middleware implements the per-request authentication gate. The request's
// context is the only thing it mutates, and it always forwards to next.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if strings.TrimSpace(header) == "" {
			next.ServeHTTP(w, r)
			return
		}

		// The prefix is exact, trailing space included.
		if !strings.HasPrefix(header, common.BearerPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		tokenString := header[len(common.BearerPrefix):]

		subject, err := a.tokens.ExtractSubject(tokenString)
		if err != nil {
			a.logger.Debug(r.Context(), "token rejected", "reason", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		// Idempotent: a request that already carries an identity is untouched.
		if IdentityFrom(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.users.GetByUsername(r.Context(), subject)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if !a.tokens.IsValid(tokenString, user.Username) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), &Identity{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

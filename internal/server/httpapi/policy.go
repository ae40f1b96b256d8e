package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anandakmagar/authguard/internal/server/models"
)

// Decision is the outcome of evaluating the authorization policy for a
// single request.
type Decision int

const (
	// Permit lets the request through to its handler.
	Permit Decision = iota
	// DenyUnauthenticated means the route requires a caller identity and
	// none was presented.
	DenyUnauthenticated
	// DenyForbidden means the caller is authenticated but lacks a role the
	// route requires.
	DenyForbidden
)

// routeKey identifies a protected route by method and gorilla path template.
type routeKey struct {
	method   string
	template string
}

// Policy decides whether a request may proceed based on the route it matched
// and the identity (if any) the authenticator attached.
type Policy struct {
	public map[routeKey]struct{}
	rules  map[routeKey]models.Roles
}

// NewPolicy returns the service's route policy: a small allow-list of public
// endpoints, role requirements for the rest, and authenticated-only for
// anything not listed.
func NewPolicy() *Policy {
	public := map[routeKey]struct{}{
		{http.MethodPost, "/api/auth/login"}:                     {},
		{http.MethodPost, "/api/auth/register"}:                  {},
		{http.MethodPost, "/api/auth/refresh"}:                   {},
		{http.MethodGet, "/api/auth/send-reset-code/{username}"}: {},
		{http.MethodPost, "/api/auth/change-password"}:           {},
		{http.MethodGet, "/healthz"}:                             {},
		{http.MethodGet, "/metrics"}:                             {},
	}
	rules := map[routeKey]models.Roles{
		{http.MethodGet, "/api/users"}:         {models.RoleAdmin},
		{http.MethodDelete, "/api/users/{id}"}: {models.RoleAdmin},
		{http.MethodGet, "/api/users/{id}"}:    {models.RoleAdmin, models.RoleUser},
		{http.MethodPut, "/api/users/{id}"}:    {models.RoleAdmin, models.RoleUser},
	}
	return &Policy{public: public, rules: rules}
}

// Evaluate applies the policy for a method/template pair.
func (p *Policy) Evaluate(method, template string, identity *Identity) Decision {
	key := routeKey{method: method, template: template}
	if _, ok := p.public[key]; ok {
		return Permit
	}
	if identity == nil {
		return DenyUnauthenticated
	}
	required, ok := p.rules[key]
	if !ok {
		// Not listed: any authenticated caller may proceed.
		return Permit
	}
	if identity.User.Roles.Intersects(required) {
		return Permit
	}
	return DenyForbidden
}

// Middleware enforces the policy on matched routes. Requests that did not
// match any route fall through to the router's own 404 handling.
func (p *Policy) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil {
			next.ServeHTTP(w, r)
			return
		}
		template, err := route.GetPathTemplate()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		switch p.Evaluate(r.Method, template, IdentityFrom(r.Context())) {
		case Permit:
			next.ServeHTTP(w, r)
		case DenyUnauthenticated:
			writeError(w, http.StatusUnauthorized, "authentication required")
		case DenyForbidden:
			writeError(w, http.StatusForbidden, "insufficient privileges")
		}
	})
}

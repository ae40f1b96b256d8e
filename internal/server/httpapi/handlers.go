package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/metrics"
	"github.com/anandakmagar/authguard/internal/server/models"
	"github.com/anandakmagar/authguard/internal/server/services"
)

// Handlers holds the HTTP endpoint implementations. Routing and middleware
// live in server.go; this file is the thin layer between JSON DTOs and the
// services.
type Handlers struct {
	users   *services.UserService
	reset   *services.ResetService
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewHandlers constructs the endpoint set.
func NewHandlers(users *services.UserService, reset *services.ResetService, m *metrics.Metrics, logger logging.Logger) *Handlers {
	return &Handlers{
		users:   users,
		reset:   reset,
		metrics: m,
		logger:  logger.With("module", "httpapi"),
	}
}

// Login exchanges a username/password pair for a token pair. Bad credentials
// and unknown usernames return the same 401.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.metrics.LoginAttempts.WithLabelValues("failure").Inc()
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.internalError(w, r, err)
		return
	}

	h.metrics.LoginAttempts.WithLabelValues("success").Inc()
	h.metrics.TokensIssued.WithLabelValues("login").Inc()
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    common.TokenType,
		ExpiresIn:    int64(h.users.AccessValidity().Seconds()),
	})
}

// Register creates a new account. The role field is a comma-separated list.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roles, err := models.ParseRoles(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "at least one role is required")
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password, roles)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			writeError(w, http.StatusConflict, "username already taken")
		case errors.Is(err, common.ErrorInvalidRoles):
			writeError(w, http.StatusBadRequest, "at least one role is required")
		default:
			h.internalError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Refresh mints a new token pair from a valid refresh token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		h.internalError(w, r, err)
		return
	}

	h.metrics.TokensIssued.WithLabelValues("refresh").Inc()
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    common.TokenType,
		ExpiresIn:    int64(h.users.RefreshValidity().Seconds()),
	})
}

// SendResetCode issues and mails a password reset code for the username in
// the path.
func (h *Handlers) SendResetCode(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	ok, err := h.reset.RequestReset(r.Context(), username)
	if err != nil {
		h.metrics.ResetRequests.WithLabelValues("error").Inc()
		h.internalError(w, r, err)
		return
	}
	if !ok {
		h.metrics.ResetRequests.WithLabelValues("unknown_user").Inc()
		writeError(w, http.StatusBadRequest, "failed to send reset code")
		return
	}

	h.metrics.ResetRequests.WithLabelValues("issued").Inc()
	writeJSON(w, http.StatusOK, messageResponse{Message: "reset code sent"})
}

// ChangePassword applies a password change authorized by a reset code.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.reset.ChangePassword(r.Context(), req.Username, req.ResetCode, req.NewPassword)
	if err != nil {
		// Unknown usernames get the same decline as a bad code.
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusBadRequest, "invalid reset code or username")
			return
		}
		h.internalError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reset code or username")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

// ListUsers returns all registered users. The route policy restricts it to
// administrators.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUser returns a single user by ID. Non-admin callers may only fetch their
// own record.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.mayAccessUser(r, id) {
		writeError(w, http.StatusForbidden, "insufficient privileges")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateUser applies a partial update to a user. Non-admin callers may only
// update their own record.
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.mayAccessUser(r, id) {
		writeError(w, http.StatusForbidden, "insufficient privileges")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := services.UserUpdate{Username: req.Username, Password: req.Password}
	if req.Role != nil {
		roles, err := models.ParseRoles(*req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, "at least one role is required")
			return
		}
		upd.Roles = roles
	}

	ok, err := h.users.Update(r.Context(), id, upd)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "user updated"})
}

// DeleteUser removes a user by ID. Admin-only via the route policy.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ok, err := h.users.Delete(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "user deleted"})
}

// mayAccessUser reports whether the caller may read or update the user with
// the given ID. Administrators may access anyone, others only themselves.
func (h *Handlers) mayAccessUser(r *http.Request, id string) bool {
	identity := IdentityFrom(r.Context())
	if identity == nil {
		return false
	}
	if identity.User.Roles.Has(models.RoleAdmin) {
		return true
	}
	return identity.User.ID == id
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

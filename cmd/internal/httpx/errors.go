package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"taskflow/cmd/identity"
	"taskflow/cmd/internal/auth/access"
)

// WriteUnauthorized replies 401 with the bearer challenge header.
func WriteUnauthorized(w http.ResponseWriter, code, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, code, msg)
}

// WriteAccessError maps Guard failures to responses. Anything unrecognized is
// logged under event and answered with 500.
func WriteAccessError(w http.ResponseWriter, log *slog.Logger, event string, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		WriteUnauthorized(w, "unauthorized", "could not validate credentials")
	case errors.Is(err, access.ErrAccountInactive):
		WriteError(w, http.StatusBadRequest, "inactive_user", "inactive user")
	case errors.Is(err, access.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "not enough privileges")
	default:
		WriteServerError(w, log, event, err)
	}
}

// WriteServerError logs err and replies 500 without leaking details.
func WriteServerError(w http.ResponseWriter, log *slog.Logger, event string, err error) {
	if log != nil {
		log.Error(event, "err", err)
	}
	WriteError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// Authenticate runs the guard against the request's bearer token and writes the
// failure response itself. Handlers return immediately when ok is false.
func Authenticate(w http.ResponseWriter, r *http.Request, guard *access.Guard, log *slog.Logger) (identity.User, bool) {
	u, err := guard.Authenticate(r.Context(), access.BearerToken(r))
	if err != nil {
		WriteAccessError(w, log, "auth.guard.fail", err)
		return identity.User{}, false
	}
	return u, true
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wadjakorntonsri/linkora/pkg/core/domain"
	"github.com/wadjakorntonsri/linkora/pkg/core/forms"
	"github.com/wadjakorntonsri/linkora/pkg/core/services"
	"github.com/wadjakorntonsri/linkora/pkg/observability"
	"github.com/wadjakorntonsri/linkora/pkg/ports"
)

const maxBodyBytes = 1 << 20

var (
	errUsernameTaken = errors.New("username is already taken")
	errUnauthorized  = errors.New("sign in required")
)

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequestError{msg: msg} }

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service and domain errors to a status and a client message
func statusFor(err error) (int, string) {
	var br badRequestError
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case domain.IsNotFound(err), errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrIndexOutOfRange), errors.Is(err, services.ErrInvalidPlan):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFeatureNotAvailable),
		errors.Is(err, domain.ErrLinkLimitReached),
		errors.Is(err, domain.ErrProfileLimitReached),
		errors.Is(err, services.ErrEmailNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrSessionInvalid),
		errors.Is(err, domain.ErrNoUser),
		errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, ports.ErrConflict),
		errors.Is(err, errUsernameTaken),
		errors.Is(err, domain.ErrNoCurrentProfile):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

func writeError(w http.ResponseWriter, r *http.Request, logger *observability.Logger, err error) {
	var fields forms.FieldErrors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return
	}
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(r.Context(), "Request failed", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into v. An empty body is an error unless
// optional is set.
func decodeJSON(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return errBadRequest("Invalid request body")
	}
	return nil
}

package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type Response struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

var ErrEmptyBody = errors.New("empty request body")

var kindStatus = map[string]int{
	"Unauthorized":           http.StatusUnauthorized,
	"NotFound":               http.StatusNotFound,
	"InvalidArgument":        http.StatusUnprocessableEntity,
	"InvalidStateTransition": http.StatusConflict,
	"InsufficientFunds":      http.StatusPaymentRequired,
	"Conflict":               http.StatusConflict,
	"UpstreamUnavailable":    http.StatusServiceUnavailable,
}

var publicMessages = map[string]string{
	"Unauthorized":        "Unauthorized",
	"NotFound":            "Not found",
	"InvalidArgument":     "Invalid request",
	"Conflict":            "Conflict",
	"UpstreamUnavailable": "Service temporarily unavailable",
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Response{Message: message})
}

// RespondWithDomainError maps err onto the error taxonomy. With public set, only the kind's
// generic message is written so nothing internal leaks to unauthenticated callers.
func RespondWithDomainError(w http.ResponseWriter, err error, public bool) {
	kind := domain.Kind(err)
	code, ok := kindStatus[kind]
	if !ok {
		zap.L().Error("unhandled error", zap.Error(err))
		RespondWithJSON(w, http.StatusInternalServerError, Response{Kind: kind, Message: "Internal server error"})
		return
	}
	if code == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	message := err.Error()
	if public || code == http.StatusServiceUnavailable {
		if m, ok := publicMessages[kind]; ok {
			message = m
		}
	}
	RespondWithJSON(w, code, Response{Kind: kind, Message: message})
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	return render.DecodeJSON(r.Body, v)
}

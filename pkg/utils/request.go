package utils

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// BindJSON decodes and validates the body into v. On failure it writes the response and
// returns false.
func BindJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := DecodeJSON(r, v); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		RespondWithDomainError(w, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), false)
		return false
	}
	return true
}

// PathID reads a positive integer URL parameter. On failure it writes a 400 and returns false.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		RespondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

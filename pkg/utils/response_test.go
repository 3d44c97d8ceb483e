package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		public      bool
		wantCode    int
		wantKind    string
		wantMessage string
	}{
		{
			name:        "not found keeps detail for authenticated callers",
			err:         fmt.Errorf("%w: order 12", domain.ErrNotFound),
			wantCode:    http.StatusNotFound,
			wantKind:    "NotFound",
			wantMessage: "not found: order 12",
		},
		{
			name:        "not found hides detail on public endpoints",
			err:         fmt.Errorf("%w: order 12", domain.ErrNotFound),
			public:      true,
			wantCode:    http.StatusNotFound,
			wantKind:    "NotFound",
			wantMessage: "Not found",
		},
		{
			name:        "insufficient funds",
			err:         domain.ErrInsufficientFunds,
			wantCode:    http.StatusPaymentRequired,
			wantKind:    "InsufficientFunds",
			wantMessage: "insufficient funds",
		},
		{
			name:        "state transition",
			err:         fmt.Errorf("%w: order PENDING -> DELIVERED", domain.ErrInvalidStateTransition),
			wantCode:    http.StatusConflict,
			wantKind:    "InvalidStateTransition",
			wantMessage: "invalid state transition: order PENDING -> DELIVERED",
		},
		{
			name:        "upstream never leaks driver text",
			err:         fmt.Errorf("%w: dial tcp 10.0.0.5:5432", domain.ErrUpstreamUnavailable),
			wantCode:    http.StatusServiceUnavailable,
			wantKind:    "UpstreamUnavailable",
			wantMessage: "Service temporarily unavailable",
		},
		{
			name:        "unknown error",
			err:         errors.New("pq: relation does not exist"),
			wantCode:    http.StatusInternalServerError,
			wantKind:    "Internal",
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithDomainError(w, tt.err, tt.public)

			assert.Equal(t, tt.wantCode, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Equal(t, tt.wantMessage, resp.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"brake pad"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "brake pad", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.ErrorIs(t, DecodeJSON(r, &v), ErrEmptyBody)

	r = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{bad`))
	assert.Error(t, DecodeJSON(r, &v))
}

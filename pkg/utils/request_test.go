package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type bindTarget struct {
	Login string `json:"login" validate:"required,min=3"`
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode int
	}{
		{name: "valid", body: `{"login":"buyer"}`, wantOK: true},
		{name: "broken json", body: `{"login":`, wantCode: http.StatusBadRequest},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest},
		{name: "fails validation", body: `{"login":"ab"}`, wantCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
			if tt.body != "" {
				body = strings.NewReader(tt.body)
				req = httptest.NewRequest(http.MethodPost, "/", body)
			}
			w := httptest.NewRecorder()

			var v bindTarget
			ok := BindJSON(w, req, &v)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, tt.wantCode, w.Code)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value  string
		wantID int
		wantOK bool
	}{
		{"7", 7, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.value)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			w := httptest.NewRecorder()

			id, ok := PathID(w, req, "id")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

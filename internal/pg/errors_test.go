package pg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "orders_tracking_code_key"}

	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", unique), "orders_tracking_code_key"))
	assert.False(t, IsUniqueViolation(unique, "payments_external_reference_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		upstream bool
	}{
		{"nil stays nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"connection exception", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"constraint violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.upstream, errors.Is(got, domain.ErrUpstreamUnavailable))
		})
	}
}

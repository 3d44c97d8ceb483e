package gateway

import (
	"testing"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	body := []byte(`{"reference":"gw-1","status":"SUCCESS"}`)
	sig := Sign("secret", body)

	assert.Len(t, sig, 64)
	assert.True(t, Verify("secret", body, sig))
	assert.False(t, Verify("other", body, sig))
	assert.False(t, Verify("secret", []byte(`{"reference":"gw-1","status":"FAILED"}`), sig))
	assert.False(t, Verify("secret", body, "not-hex"))
	assert.False(t, Verify("", body, Sign("", body)))
	assert.False(t, Verify("secret", body, ""))
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *Callback
		wantErr bool
	}{
		{
			name: "success",
			body: `{"reference":"gw-1","status":"SUCCESS"}`,
			want: &Callback{Reference: "gw-1", Status: "SUCCESS"},
		},
		{
			name: "failure with reason",
			body: `{"reference":"gw-1","status":"FAILED","reason":"card declined","event_id":"evt-9"}`,
			want: &Callback{Reference: "gw-1", Status: "FAILED", Reason: "card declined", EventID: "evt-9"},
		},
		{name: "unknown status", body: `{"reference":"gw-1","status":"REFUNDED"}`, wantErr: true},
		{name: "missing reference", body: `{"status":"SUCCESS"}`, wantErr: true},
		{name: "empty reference", body: `{"reference":"","status":"SUCCESS"}`, wantErr: true},
		{name: "extra field", body: `{"reference":"gw-1","status":"SUCCESS","amount":10}`, wantErr: true},
		{name: "not json", body: `reference=gw-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallback([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

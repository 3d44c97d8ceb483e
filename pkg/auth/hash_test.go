package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hashService := NewHashService(bcrypt.MinCost)

	tests := []struct {
		name        string
		password    string
		expectError error
	}{
		{
			name:     "Valid password",
			password: "securepassword",
		},
		{
			name:        "Empty password",
			password:    "",
			expectError: ErrEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashedPassword, err := hashService.HashPassword(tt.password)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Empty(t, hashedPassword)
			} else {
				assert.NoError(t, err)
				assert.NotEqual(t, tt.password, hashedPassword)
			}
		})
	}
}

func TestComparePassword(t *testing.T) {
	hashService := NewHashService(bcrypt.MinCost)
	hashed, err := hashService.HashPassword("securepassword")
	assert.NoError(t, err)

	assert.True(t, hashService.ComparePassword(hashed, "securepassword"))
	assert.False(t, hashService.ComparePassword(hashed, "wrongpassword"))
	assert.False(t, hashService.ComparePassword("not-a-hash", "securepassword"))
}

func TestNewHashServiceCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHashService(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHashService(99).cost)
	assert.Equal(t, 12, NewHashService(12).cost)
}

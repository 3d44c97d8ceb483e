package addressservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*Service, *MockRepo) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	return New(repo, time.Second), repo
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name        string
		address     domain.Address
		prepareMock func(repo *MockRepo)
		wantErr     error
	}{
		{
			name:        "missing city",
			address:     domain.Address{Line1: "1 Main St", Country: "NG"},
			prepareMock: func(repo *MockRepo) {},
			wantErr:     domain.ErrInvalidArgument,
		},
		{
			name:        "country must be a two letter code",
			address:     domain.Address{Line1: "1 Main St", City: "Lagos", Country: "Nigeria"},
			prepareMock: func(repo *MockRepo) {},
			wantErr:     domain.ErrInvalidArgument,
		},
		{
			name:    "stored for the caller",
			address: domain.Address{UserID: 99, Line1: "1 Main St", City: "Lagos", Country: "NG"},
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), &domain.Address{UserID: 9, Line1: "1 Main St", City: "Lagos", Country: "NG"}).
					DoAndReturn(func(_ context.Context, a *domain.Address) (*domain.Address, error) {
						a.ID = 2
						return a, nil
					})
			},
		},
		{
			name:    "repository failure",
			address: domain.Address{Line1: "1 Main St", City: "Lagos", Country: "NG"},
			prepareMock: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)
			},
			wantErr: domain.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo := NewMock(t)
			tt.prepareMock(repo)

			got, err := service.Create(context.Background(), 9, tt.address)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, got.ID)
			assert.Equal(t, 9, got.UserID)
		})
	}
}

func TestList(t *testing.T) {
	service, repo := NewMock(t)

	repo.EXPECT().ListByUser(gomock.Any(), 9).Return(nil, nil)
	got, err := service.List(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, got)

	repo.EXPECT().ListByUser(gomock.Any(), 9).Return(nil, errors.New("boom"))
	_, err = service.List(context.Background(), 9)
	assert.Error(t, err)
}

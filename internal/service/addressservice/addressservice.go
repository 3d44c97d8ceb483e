package addressservice

import (
	"context"
	"fmt"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/pkg/validate"
)

//go:generate mockgen -source=addressservice.go -destination=mock_addressservice.go -package=addressservice

type Repo interface {
	Create(ctx context.Context, a *domain.Address) (*domain.Address, error)
	ListByUser(ctx context.Context, userID int) ([]domain.Address, error)
}

type Service struct {
	repo    Repo
	timeout time.Duration
}

func New(repo Repo, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

type newAddress struct {
	Line1      string `validate:"required,max=200"`
	City       string `validate:"required,max=100"`
	PostalCode string `validate:"max=20"`
	Country    string `validate:"required,len=2,alpha"`
}

func (s *Service) Create(ctx context.Context, userID int, a domain.Address) (*domain.Address, error) {
	if err := validate.Struct(newAddress{Line1: a.Line1, City: a.City, PostalCode: a.PostalCode, Country: a.Country}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	a.UserID = userID

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.repo.Create(ctx, &a)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, userID int) ([]domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if addresses == nil {
		addresses = []domain.Address{}
	}
	return addresses, nil
}

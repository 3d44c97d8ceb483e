package catalogservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/pkg/validate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=catalogservice.go -destination=mock_catalogservice.go -package=catalogservice

const maxPage = 100

type Repo interface {
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id int) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	UpdatePrice(ctx context.Context, id int, price decimal.Decimal) (*domain.Product, error)
}

type Service struct {
	repo    Repo
	timeout time.Duration
}

func New(repo Repo, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

func validPrice(price decimal.Decimal) error {
	if !validate.Money(price) {
		return fmt.Errorf("%w: price must be positive with at most two decimals", domain.ErrInvalidArgument)
	}
	return nil
}

// CreateProduct lists a part under the acting supplier.
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, name string, price decimal.Decimal) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidArgument)
	}
	if err := validPrice(price); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.Create(ctx, &domain.Product{SupplierID: actor.UserID, Name: name, Price: price})
	if err != nil {
		return nil, pg.Wrap(err)
	}
	zap.L().Info("product created", zap.Int("productID", product.ID), zap.Int("supplierID", actor.UserID))
	return product, nil
}

// UpdatePrice changes the current price. Existing orders keep the price they were placed at.
func (s *Service) UpdatePrice(ctx context.Context, actor domain.Actor, productID int, price decimal.Decimal) (*domain.Product, error) {
	if err := validPrice(price); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if product == nil || (actor.Role != domain.RoleAdmin && product.SupplierID != actor.UserID) {
		return nil, domain.ErrNotFound
	}

	updated, err := s.repo.UpdatePrice(ctx, productID, price)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || limit > maxPage {
		limit = maxPage
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

package addressrepo

import (
	"context"
	"errors"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, a *domain.Address) (*domain.Address, error) {
	query := `
		INSERT INTO addresses (user_id, line1, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, a.UserID, a.Line1, a.City, a.PostalCode, a.Country).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		zap.L().Error("can't save address", zap.Error(err))
		return nil, err
	}
	return a, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Address, error) {
	query := `SELECT id, user_id, line1, city, postal_code, country, created_at FROM addresses WHERE id = $1`
	var a domain.Address
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.PostalCode, &a.Country, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find address", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.Address, error) {
	query := `SELECT id, user_id, line1, city, postal_code, country, created_at FROM addresses WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get addresses", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var addresses []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.PostalCode, &a.Country, &a.CreatedAt); err != nil {
			zap.L().Error("can't scan address row", zap.Error(err))
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

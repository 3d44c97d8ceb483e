package productrepo

import (
	"context"
	"errors"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const columns = `id, supplier_id, name, price, created_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scan(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.SupplierID, &p.Name, &p.Price, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (supplier_id, name, price)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRow(ctx, query, p.SupplierID, p.Name, p.Price).Scan(&p.ID, &p.CreatedAt); err != nil {
		zap.L().Error("can't save product", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	p, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find product", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't get products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan product row", zap.Error(err))
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *Repository) FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+columns+` FROM products WHERE id = ANY($1)`, ids)
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	return r.query(ctx, `SELECT `+columns+` FROM products ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
}

// UpdatePrice changes the catalog price only; existing orders keep their frozen prices.
func (r *Repository) UpdatePrice(ctx context.Context, id int, price decimal.Decimal) (*domain.Product, error) {
	p, err := scan(r.db.QueryRow(ctx, `UPDATE products SET price = $1 WHERE id = $2 RETURNING `+columns, price, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't update product price", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

package paymentrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ReferenceConstraint = "payments_external_reference_key"

const columns = `id, order_id, user_id, amount, method, status, external_reference, failure_reason, created_at, settled_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scan(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Method, &p.Status,
		&p.Reference, &p.FailureReason, &p.CreatedAt, &p.SettledAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	p, err := scan(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find payment", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (order_id, user_id, amount, method, status, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, p.OrderID, p.UserID, p.Amount, p.Method, p.Status, p.Reference).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, ReferenceConstraint) {
			return nil, fmt.Errorf("%w: payment reference already recorded", domain.ErrConflict)
		}
		zap.L().Error("failed to create payment", zap.Int("orderID", p.OrderID), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM payments WHERE id = $1`, id)
}

// FindByIDForUpdate locks the payment row until the surrounding transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) FindByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM payments WHERE external_reference = $1`, reference)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("failed to list payments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			zap.L().Error("failed to scan payment", zap.Error(err))
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *Repository) ListByOrder(ctx context.Context, orderID int) ([]domain.Payment, error) {
	return r.list(ctx, `SELECT `+columns+` FROM payments WHERE order_id = $1 ORDER BY created_at DESC, id DESC`, orderID)
}

// FindStalePending returns gateway payments still PENDING that were created before olderThan.
func (r *Repository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + columns + ` FROM payments
		WHERE status = 'PENDING' AND external_reference IS NOT NULL AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`
	return r.list(ctx, query, olderThan, limit)
}

// SettledAmount sums SUCCESS payments of the order.
func (r *Repository) SettledAmount(ctx context.Context, orderID int) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1 AND status = 'SUCCESS'`
	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, orderID).Scan(&sum); err != nil {
		zap.L().Error("failed to sum settled payments", zap.Int("orderID", orderID), zap.Error(err))
		return decimal.Zero, err
	}
	return sum, nil
}

// Settle moves a PENDING payment to status. It returns nil when the payment is no longer PENDING.
func (r *Repository) Settle(ctx context.Context, id int, status domain.PaymentStatus, reason *string) (*domain.Payment, error) {
	query := `
		UPDATE payments
		SET status = $1, failure_reason = $2, settled_at = now()
		WHERE id = $3 AND status = 'PENDING'
		RETURNING ` + columns
	return r.findOne(ctx, query, status, reason, id)
}

// FailPendingByOrder fails every PENDING payment of the order and reports how many it touched.
func (r *Repository) FailPendingByOrder(ctx context.Context, orderID int, reason string) (int64, error) {
	query := `
		UPDATE payments
		SET status = 'FAILED', failure_reason = $1, settled_at = now()
		WHERE order_id = $2 AND status = 'PENDING'
	`
	tag, err := r.db.Exec(ctx, query, reason, orderID)
	if err != nil {
		zap.L().Error("failed to fail pending payments", zap.Int("orderID", orderID), zap.Error(err))
		return 0, err
	}
	return tag.RowsAffected(), nil
}

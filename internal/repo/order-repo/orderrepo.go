package orderrepo

import (
	"context"
	"errors"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const TrackingCodeConstraint = domain.ConstraintTrackingCode

const columns = `id, user_id, address_id, tracking_code, status, total, created_at, updated_at`

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func scan(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.UserID, &o.AddressID, &o.TrackingCode, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) findOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	o, err := scan(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find order", zap.Error(err))
		return nil, err
	}
	return o, nil
}

// Insert stores the order row and its items. The caller owns the transaction; a tracking-code
// collision surfaces as a unique violation on TrackingCodeConstraint.
func (r *Repository) Insert(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (user_id, address_id, tracking_code, status, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, order.UserID, order.AddressID, order.TrackingCode, order.Status, order.Total).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if !pg.IsUniqueViolation(err, TrackingCodeConstraint) {
			zap.L().Error("can't save order", zap.Error(err))
		}
		return err
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, supplier_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := r.db.QueryRow(ctx, itemQuery, order.ID, item.ProductID, item.SupplierID, item.ProductName, item.Quantity, item.UnitPrice).
			Scan(&item.ID)
		if err != nil {
			zap.L().Error("can't save order item", zap.Int("orderID", order.ID), zap.Error(err))
			return err
		}
	}
	return nil
}

func (r *Repository) InsertEvent(ctx context.Context, event *domain.OrderEvent) error {
	query := `
		INSERT INTO order_events (order_id, status, note, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, event.OrderID, event.Status, event.Note, event.Location).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		zap.L().Error("can't save order event", zap.Int("orderID", event.OrderID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM orders WHERE id = $1`, id)
}

// FindByIDForUpdate locks the order row until the surrounding transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) FindByTrackingCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.findOne(ctx, `SELECT `+columns+` FROM orders WHERE tracking_code = $1`, code)
}

// ListByUser is newest first; the id tiebreak keeps the order stable under concurrent inserts.
func (r *Repository) ListByUser(ctx context.Context, userID int) ([]domain.Order, error) {
	query := `SELECT ` + columns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// FindItems returns the items of the given orders in insertion order.
func (r *Repository) FindItems(ctx context.Context, orderIDs ...int) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, supplier_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`
	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		zap.L().Error("can't get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SupplierID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			zap.L().Error("can't scan order item", zap.Error(err))
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) FindEvents(ctx context.Context, orderID int) ([]domain.OrderEvent, error) {
	query := `
		SELECT id, order_id, status, note, location, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("can't get order events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var e domain.OrderEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.Location, &e.CreatedAt); err != nil {
			zap.L().Error("can't scan order event", zap.Error(err))
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateStatus is a compare-and-set on the current status. It returns nil when the order is
// no longer in from.
func (r *Repository) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING ` + columns
	return r.findOne(ctx, query, to, id, from)
}

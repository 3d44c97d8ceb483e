package orderrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	return New(mockDB), mockDB
}

var (
	orderColumns = []string{"id", "user_id", "address_id", "tracking_code", "status", "total", "created_at", "updated_at"}

	insertOrder = regexp.QuoteMeta(`INSERT INTO orders (user_id, address_id, tracking_code, status, total) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`)
	insertItem  = regexp.QuoteMeta(`INSERT INTO order_items (order_id, product_id, supplier_id, product_name, quantity, unit_price) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`)
)

func newOrder() *domain.Order {
	return &domain.Order{
		UserID:       7,
		AddressID:    3,
		TrackingCode: "PH000000000018",
		Status:       domain.OrderPending,
		Total:        decimal.RequireFromString("2500"),
		Items: []domain.OrderItem{
			{ProductID: 10, SupplierID: 9, ProductName: "Brake pad", Quantity: 2, UnitPrice: decimal.RequireFromString("1000")},
			{ProductID: 11, SupplierID: 9, ProductName: "Oil filter", Quantity: 1, UnitPrice: decimal.RequireFromString("500")},
		},
	}
}

func TestRepository_Insert(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	t.Run("Order and items stored", func(t *testing.T) {
		order := newOrder()
		mock.ExpectQuery(insertOrder).
			WithArgs(7, 3, "PH000000000018", domain.OrderPending, order.Total).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))
		mock.ExpectQuery(insertItem).
			WithArgs(42, 10, 9, "Brake pad", 2, order.Items[0].UnitPrice).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(insertItem).
			WithArgs(42, 11, 9, "Oil filter", 1, order.Items[1].UnitPrice).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(2))

		require.NoError(t, repo.Insert(context.Background(), order))
		assert.Equal(t, 42, order.ID)
		assert.Equal(t, 42, order.Items[1].OrderID)
		assert.Equal(t, 2, order.Items[1].ID)
	})

	t.Run("Tracking code collision", func(t *testing.T) {
		order := newOrder()
		mock.ExpectQuery(insertOrder).
			WithArgs(7, 3, "PH000000000018", domain.OrderPending, order.Total).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: TrackingCodeConstraint})

		err := repo.Insert(context.Background(), order)
		assert.True(t, pg.IsUniqueViolation(err, TrackingCodeConstraint))
	})

	t.Run("Item insert fails", func(t *testing.T) {
		order := newOrder()
		mock.ExpectQuery(insertOrder).
			WithArgs(7, 3, "PH000000000018", domain.OrderPending, order.Total).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(43, now, now))
		mock.ExpectQuery(insertItem).
			WithArgs(43, 10, 9, "Brake pad", 2, order.Items[0].UnitPrice).
			WillReturnError(errors.New("database error"))

		assert.Error(t, repo.Insert(context.Background(), order))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertEvent(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO order_events (order_id, status, note, location) VALUES ($1, $2, $3, $4) RETURNING id, created_at`)).
		WithArgs(42, domain.OrderShipped, "handed to carrier", "Lagos hub").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))

	event := &domain.OrderEvent{OrderID: 42, Status: domain.OrderShipped, Note: "handed to carrier", Location: "Lagos hub"}
	require.NoError(t, repo.InsertEvent(context.Background(), event))
	assert.Equal(t, 5, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByTrackingCode(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, user_id, address_id, tracking_code, status, total, created_at, updated_at FROM orders WHERE tracking_code = $1`)

	tests := []struct {
		name      string
		code      string
		mockSetup func()
		expectErr bool
		result    *domain.Order
	}{
		{
			name: "Found",
			code: "PH000000000018",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("PH000000000018").
					WillReturnRows(pgxmock.NewRows(orderColumns).
						AddRow(42, 7, 3, "PH000000000018", domain.OrderPaid, decimal.RequireFromString("2500"), now, now))
			},
			result: &domain.Order{ID: 42, UserID: 7, AddressID: 3, TrackingCode: "PH000000000018", Status: domain.OrderPaid, Total: decimal.RequireFromString("2500"), CreatedAt: now, UpdatedAt: now},
		},
		{
			name: "Unknown",
			code: "PH799273987138",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("PH799273987138").WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "Database error",
			code: "PH000000000018",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs("PH000000000018").WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByTrackingCode(context.Background(), tt.code)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, user_id, address_id, tracking_code, status, total, created_at, updated_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`)

	mock.ExpectQuery(query).WithArgs(7).
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow(43, 7, 3, "PH799273987138", domain.OrderPending, decimal.RequireFromString("10"), now, now).
			AddRow(42, 7, 3, "PH000000000018", domain.OrderPaid, decimal.RequireFromString("2500"), now, now))

	orders, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, 43, orders[0].ID)
	assert.Equal(t, 42, orders[1].ID)

	mock.ExpectQuery(query).WithArgs(7).WillReturnError(errors.New("database error"))
	_, err = repo.ListByUser(context.Background(), 7)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindItems(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta(`SELECT id, order_id, product_id, supplier_id, product_name, quantity, unit_price FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`)

	mock.ExpectQuery(query).WithArgs([]int{42, 43}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "supplier_id", "product_name", "quantity", "unit_price"}).
			AddRow(1, 42, 10, 9, "Brake pad", 2, decimal.RequireFromString("1000")).
			AddRow(3, 43, 12, 8, "Spark plug", 4, decimal.RequireFromString("2.50")))

	items, err := repo.FindItems(context.Background(), 42, 43)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Spark plug", items[1].ProductName)
	assert.Equal(t, "10", items[1].Subtotal().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindEvents(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, order_id, status, note, location, created_at FROM order_events WHERE order_id = $1 ORDER BY created_at, id`)

	mock.ExpectQuery(query).WithArgs(42).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "status", "note", "location", "created_at"}).
			AddRow(1, 42, domain.OrderPending, "order placed", "", now).
			AddRow(2, 42, domain.OrderPaid, "payment settled", "", now))

	events, err := repo.FindEvents(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.OrderPaid, events[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3 RETURNING id, user_id, address_id, tracking_code, status, total, created_at, updated_at`)

	mock.ExpectQuery(query).WithArgs(domain.OrderShipped, 42, domain.OrderPaid).
		WillReturnRows(pgxmock.NewRows(orderColumns).
			AddRow(42, 7, 3, "PH000000000018", domain.OrderShipped, decimal.RequireFromString("2500"), now, now))
	order, err := repo.UpdateStatus(context.Background(), 42, domain.OrderPaid, domain.OrderShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, order.Status)

	mock.ExpectQuery(query).WithArgs(domain.OrderShipped, 42, domain.OrderPaid).WillReturnError(pgx.ErrNoRows)
	order, err = repo.UpdateStatus(context.Background(), 42, domain.OrderPaid, domain.OrderShipped)
	assert.NoError(t, err)
	assert.Nil(t, order)

	assert.NoError(t, mock.ExpectationsWereMet())
}

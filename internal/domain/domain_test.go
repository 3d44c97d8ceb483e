package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderPending, OrderPaid, true},
		{OrderPending, OrderCancelled, true},
		{OrderPaid, OrderShipped, true},
		{OrderPaid, OrderCancelled, true},
		{OrderShipped, OrderDelivered, true},
		{OrderDelivered, OrderRefunded, true},
		{OrderPending, OrderDelivered, false},
		{OrderPending, OrderShipped, false},
		{OrderShipped, OrderCancelled, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderCancelled, OrderPaid, false},
		{OrderCancelled, OrderRefunded, false},
		{OrderRefunded, OrderDelivered, false},
		{OrderPaid, OrderPaid, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			}
		})
	}
}

func TestHappyPathWalk(t *testing.T) {
	path := []OrderStatus{OrderPending, OrderPaid, OrderShipped, OrderDelivered}
	for i := 1; i < len(path); i++ {
		assert.NoError(t, CheckTransition(path[i-1], path[i]))
	}
}

func TestOrderTotal(t *testing.T) {
	items := []OrderItem{
		{Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		{Quantity: 1, UnitPrice: decimal.NewFromInt(500)},
	}
	assert.True(t, decimal.NewFromInt(2500).Equal(OrderTotal(items)))
	assert.True(t, decimal.Zero.Equal(OrderTotal(nil)))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{fmt.Errorf("wrap: %w", ErrNotFound), "NotFound"},
		{ErrInsufficientFunds, "InsufficientFunds"},
		{fmt.Errorf("%w: x", ErrInvalidStateTransition), "InvalidStateTransition"},
		{ErrConflict, "Conflict"},
		{ErrUpstreamUnavailable, "UpstreamUnavailable"},
		{ErrUnauthorized, "Unauthorized"},
		{ErrInvalidArgument, "InvalidArgument"},
		{errors.New("boom"), "Internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err))
	}
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, MethodWallet.Valid())
	assert.False(t, PaymentMethod("CASH").Valid())
	assert.True(t, RoleLogistics.Valid())
	assert.False(t, Role("ROOT").Valid())
	assert.True(t, ReasonPayout.Valid())
	assert.False(t, TransactionReason("GIFT").Valid())
	assert.True(t, OrderRefunded.Valid())
	assert.False(t, OrderStatus("LOST").Valid())
}

func TestNewPublicSnapshot(t *testing.T) {
	order := Order{
		ID:           42,
		UserID:       7,
		AddressID:    3,
		TrackingCode: "PH000000000018",
		Status:       OrderPaid,
		Total:        decimal.RequireFromString("2500"),
		Items: []OrderItem{
			{ID: 1, OrderID: 42, ProductID: 10, SupplierID: 9, ProductName: "Brake pad", Quantity: 2, UnitPrice: decimal.RequireFromString("1000")},
			{ID: 2, OrderID: 42, ProductID: 11, SupplierID: 9, ProductName: "Oil filter", Quantity: 1, UnitPrice: decimal.RequireFromString("500")},
		},
	}
	address := Address{ID: 3, UserID: 7, Line1: "1 Main St", City: "Lagos", Country: "NG"}
	events := []OrderEvent{{ID: 5, OrderID: 42, Status: OrderPending, Note: "order placed"}}

	snap := NewPublicSnapshot(order, address, events)

	assert.Equal(t, "PH000000000018", snap.TrackingCode)
	assert.Equal(t, OrderPaid, snap.Status)
	assert.Equal(t, "Lagos", snap.City)
	assert.Equal(t, []PublicItem{
		{Name: "Brake pad", Quantity: 2, UnitPrice: decimal.RequireFromString("1000")},
		{Name: "Oil filter", Quantity: 1, UnitPrice: decimal.RequireFromString("500")},
	}, snap.Items)
	assert.Equal(t, []PublicEvent{{Status: OrderPending, Note: "order placed"}}, snap.Events)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublicSnapshot is what an unauthenticated tracking lookup may see. It carries no internal ids.
type PublicSnapshot struct {
	TrackingCode string
	Status       OrderStatus
	Total        decimal.Decimal
	Items        []PublicItem
	City         string
	Country      string
	Events       []PublicEvent
	UpdatedAt    time.Time
}

type PublicItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type PublicEvent struct {
	Status    OrderStatus
	Note      string
	Location  string
	CreatedAt time.Time
}

func NewPublicSnapshot(order Order, address Address, events []OrderEvent) *PublicSnapshot {
	snap := &PublicSnapshot{
		TrackingCode: order.TrackingCode,
		Status:       order.Status,
		Total:        order.Total,
		City:         address.City,
		Country:      address.Country,
		UpdatedAt:    order.UpdatedAt,
		Items:        make([]PublicItem, 0, len(order.Items)),
		Events:       make([]PublicEvent, 0, len(events)),
	}
	for _, item := range order.Items {
		snap.Items = append(snap.Items, PublicItem{Name: item.ProductName, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	for _, e := range events {
		snap.Events = append(snap.Events, PublicEvent{Status: e.Status, Note: e.Note, Location: e.Location, CreatedAt: e.CreatedAt})
	}
	return snap
}

// LineRequest is one requested order line before prices are frozen.
type LineRequest struct {
	ProductID int
	Quantity  int
}

// LedgerShare is the net amount one user received for an order.
type LedgerShare struct {
	UserID int
	Amount decimal.Decimal
}

type NotificationEvent string

const (
	EventOrderCreated       NotificationEvent = "order.created"
	EventOrderStatusChanged NotificationEvent = "order.status_changed"
	EventPaymentConfirmed   NotificationEvent = "payment.confirmed"
	EventPaymentFailed      NotificationEvent = "payment.failed"
)

type Notification struct {
	Event        NotificationEvent `json:"event"`
	UserID       int               `json:"user_id"`
	OrderID      int               `json:"order_id,omitempty"`
	PaymentID    int               `json:"payment_id,omitempty"`
	TrackingCode string            `json:"tracking_code,omitempty"`
	Status       string            `json:"status,omitempty"`
	Amount       string            `json:"amount,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Actor is the authenticated caller of a state-changing operation.
type Actor struct {
	UserID int
	Role   Role
}

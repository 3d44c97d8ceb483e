package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleBuyer     Role = "BUYER"
	RoleSupplier  Role = "SUPPLIER"
	RoleMechanic  Role = "MECHANIC"
	RoleLogistics Role = "LOGISTICS"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSupplier, RoleMechanic, RoleLogistics, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int       `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

type Product struct {
	ID         int             `db:"id"`
	SupplierID int             `db:"supplier_id"`
	Name       string          `db:"name"`
	Price      decimal.Decimal `db:"price"`
	CreatedAt  time.Time       `db:"created_at"`
}

type Address struct {
	ID         int       `db:"id"`
	UserID     int       `db:"user_id"`
	Line1      string    `db:"line1"`
	City       string    `db:"city"`
	PostalCode string    `db:"postal_code"`
	Country    string    `db:"country"`
	CreatedAt  time.Time `db:"created_at"`
}

type Order struct {
	ID           int             `db:"id"`
	UserID       int             `db:"user_id"`
	AddressID    int             `db:"address_id"`
	TrackingCode string          `db:"tracking_code"`
	Status       OrderStatus     `db:"status"`
	Total        decimal.Decimal `db:"total"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`

	Items []OrderItem `db:"-"`
}

// OrderItem is frozen at purchase time and never re-read from products.
type OrderItem struct {
	ID          int             `db:"id"`
	OrderID     int             `db:"order_id"`
	ProductID   int             `db:"product_id"`
	SupplierID  int             `db:"supplier_id"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums price × quantity over the items.
func OrderTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

type OrderEvent struct {
	ID        int         `db:"id"`
	OrderID   int         `db:"order_id"`
	Status    OrderStatus `db:"status"`
	Note      string      `db:"note"`
	Location  string      `db:"location"`
	CreatedAt time.Time   `db:"created_at"`
}

// OrderSnapshot is the read model returned to the order owner and, stripped, to tracking lookups.
type OrderSnapshot struct {
	Order   Order
	Address Address
	Events  []OrderEvent
}

type PaymentMethod string

const (
	MethodCard          PaymentMethod = "CARD"
	MethodWallet        PaymentMethod = "WALLET"
	MethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	MethodPayOnDelivery PaymentMethod = "PAY_ON_DELIVERY"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodWallet, MethodBankTransfer, MethodPayOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Payment struct {
	ID            int             `db:"id"`
	OrderID       int             `db:"order_id"`
	UserID        int             `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"`
	Method        PaymentMethod   `db:"method"`
	Status        PaymentStatus   `db:"status"`
	Reference     *string         `db:"external_reference"`
	FailureReason *string         `db:"failure_reason"`
	CreatedAt     time.Time       `db:"created_at"`
	SettledAt     *time.Time      `db:"settled_at"`
}

type Wallet struct {
	ID        int             `db:"id"`
	UserID    int             `db:"user_id"`
	Currency  string          `db:"currency"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type TransactionKind string

const (
	KindCredit TransactionKind = "CREDIT"
	KindDebit  TransactionKind = "DEBIT"
)

type TransactionReason string

const (
	ReasonOrderPayment TransactionReason = "ORDER_PAYMENT"
	ReasonRefund       TransactionReason = "REFUND"
	ReasonPayout       TransactionReason = "PAYOUT"
	ReasonAdjustment   TransactionReason = "ADJUSTMENT"
)

func (r TransactionReason) Valid() bool {
	switch r {
	case ReasonOrderPayment, ReasonRefund, ReasonPayout, ReasonAdjustment:
		return true
	}
	return false
}

// Correlation ties a ledger row to what caused it. IdempotencyKey is unique per wallet.
type Correlation struct {
	PaymentID      *int
	OrderID        *int
	IdempotencyKey string
}

// WalletTransaction is an append-only ledger row; Amount is signed.
type WalletTransaction struct {
	ID             int               `db:"id"`
	WalletID       int               `db:"wallet_id"`
	Amount         decimal.Decimal   `db:"amount"`
	Kind           TransactionKind   `db:"kind"`
	Reason         TransactionReason `db:"reason"`
	PaymentID      *int              `db:"payment_id"`
	OrderID        *int              `db:"order_id"`
	IdempotencyKey string            `db:"idempotency_key"`
	BalanceAfter   decimal.Decimal   `db:"balance_after"`
	CreatedAt      time.Time         `db:"created_at"`
}

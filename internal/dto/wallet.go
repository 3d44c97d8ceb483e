package dto

import (
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/shopspring/decimal"
)

type WalletResponseDTO struct {
	Currency string `json:"currency" example:"USD"`
	Balance  string `json:"balance" example:"2000.00"`
}

type WalletTransactionDTO struct {
	ID           int    `json:"id"`
	Amount       string `json:"amount" example:"-25.00"`
	Kind         string `json:"kind" example:"DEBIT"`
	Reason       string `json:"reason" example:"PAYOUT"`
	OrderID      *int   `json:"order_id,omitempty"`
	PaymentID    *int   `json:"payment_id,omitempty"`
	BalanceAfter string `json:"balance_after" example:"1975.00"`
	CreatedAt    string `json:"created_at"`
}

func NewWalletTransaction(tx domain.WalletTransaction) WalletTransactionDTO {
	return WalletTransactionDTO{
		ID:           tx.ID,
		Amount:       tx.Amount.StringFixed(2),
		Kind:         string(tx.Kind),
		Reason:       string(tx.Reason),
		OrderID:      tx.OrderID,
		PaymentID:    tx.PaymentID,
		BalanceAfter: tx.BalanceAfter.StringFixed(2),
		CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
	}
}

type PayoutRequestDTO struct {
	Amount         decimal.Decimal `json:"amount" validate:"money" swaggertype:"string" example:"25.00"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=100" example:"payout-2024-05-01"`
}

type AdjustRequestDTO struct {
	Amount         decimal.Decimal `json:"amount" swaggertype:"string" example:"-10.00"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=100" example:"ticket-4411"`
}

package dto

import (
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/shopspring/decimal"
)

type InitiatePaymentRequestDTO struct {
	Amount    decimal.Decimal `json:"amount" validate:"money" swaggertype:"string" example:"99.80"`
	Method    string          `json:"method" validate:"required,oneof=CARD WALLET BANK_TRANSFER PAY_ON_DELIVERY" example:"CARD"`
	Reference string          `json:"reference,omitempty" validate:"max=128" example:"gw-7f3a"`
}

type FailPaymentRequestDTO struct {
	Reason string `json:"reason" validate:"required,max=500" example:"chargeback"`
}

type PaymentResponseDTO struct {
	ID            int    `json:"id" example:"11"`
	OrderID       int    `json:"order_id" example:"7"`
	Amount        string `json:"amount" example:"99.80"`
	Method        string `json:"method" example:"CARD"`
	Status        string `json:"status" example:"PENDING"`
	Reference     string `json:"reference,omitempty" example:"gw-7f3a"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	SettledAt     string `json:"settled_at,omitempty"`
}

func NewPaymentResponse(p domain.Payment) PaymentResponseDTO {
	resp := PaymentResponseDTO{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Amount:    p.Amount.StringFixed(2),
		Method:    string(p.Method),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.Reference != nil {
		resp.Reference = *p.Reference
	}
	if p.FailureReason != nil {
		resp.FailureReason = *p.FailureReason
	}
	if p.SettledAt != nil {
		resp.SettledAt = p.SettledAt.Format(time.RFC3339)
	}
	return resp
}

type CallbackResponseDTO struct {
	PaymentID int    `json:"payment_id"`
	Status    string `json:"status"`
}

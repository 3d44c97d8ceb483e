package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/GlebRadaev/partshub/pkg/utils"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

func NewMock(t *testing.T) (*WalletHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	return handler, service
}

func withCaller(r *http.Request, userID int, role domain.Role) *http.Request {
	ctx := context.WithValue(r.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.RoleKey, role)
	return r.WithContext(ctx)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGetWalletHandler(t *testing.T) {
	handler, service := NewMock(t)
	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
		expectedBody dto.WalletResponseDTO
	}{
		{
			name: "Successful retrieval",
			prepareMock: func() {
				service.EXPECT().GetWallet(gomock.Any(), 1).
					Return(&domain.Wallet{UserID: 1, Currency: "USD", Balance: dec("2000")}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: dto.WalletResponseDTO{Currency: "USD", Balance: "2000.00"},
		},
		{
			name: "Storage unavailable",
			prepareMock: func() {
				service.EXPECT().GetWallet(gomock.Any(), 1).Return(nil, domain.ErrUpstreamUnavailable)
			},
			expectedCode: http.StatusServiceUnavailable,
		},
		{
			name: "Internal server error",
			prepareMock: func() {
				service.EXPECT().GetWallet(gomock.Any(), 1).Return(nil, errors.New("error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := withCaller(httptest.NewRequest(http.MethodGet, "/api/wallet", http.NoBody), 1, domain.RoleBuyer)
			rr := httptest.NewRecorder()

			handler.GetWallet(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusOK {
				var resp dto.WalletResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedBody, resp)
			}
		})
	}
}

func TestGetTransactionsHandler(t *testing.T) {
	handler, service := NewMock(t)
	orderID := 7
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		query        string
		prepareMock  func()
		expectedCode int
		expectedLen  int
	}{
		{
			name:  "Ledger entries",
			query: "?limit=10",
			prepareMock: func() {
				service.EXPECT().ListTransactions(gomock.Any(), 1, 10).Return([]domain.WalletTransaction{
					{ID: 2, Amount: dec("-25"), Kind: domain.KindDebit, Reason: domain.ReasonPayout, BalanceAfter: dec("1975"), CreatedAt: created},
					{ID: 1, Amount: dec("2000"), Kind: domain.KindCredit, Reason: domain.ReasonOrderPayment, OrderID: &orderID, BalanceAfter: dec("2000"), CreatedAt: created},
				}, nil)
			},
			expectedCode: http.StatusOK,
			expectedLen:  2,
		},
		{
			name:  "Bad limit falls back to service default",
			query: "?limit=abc",
			prepareMock: func() {
				service.EXPECT().ListTransactions(gomock.Any(), 1, 0).Return(nil, nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name: "Service error",
			prepareMock: func() {
				service.EXPECT().ListTransactions(gomock.Any(), 1, 0).Return(nil, errors.New("db error"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := withCaller(httptest.NewRequest(http.MethodGet, "/api/wallet/transactions"+tt.query, http.NoBody), 1, domain.RoleSupplier)
			rr := httptest.NewRecorder()

			handler.GetTransactions(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedLen > 0 {
				var resp []dto.WalletTransactionDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Len(t, resp, tt.expectedLen)
				assert.Equal(t, "-25.00", resp[0].Amount)
				assert.Equal(t, "1975.00", resp[0].BalanceAfter)
				assert.Equal(t, &orderID, resp[1].OrderID)
			}
		})
	}
}

func TestPayoutHandler(t *testing.T) {
	handler, service := NewMock(t)
	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful payout",
			body: `{"amount":"25.00","idempotency_key":"payout-1"}`,
			prepareMock: func() {
				service.EXPECT().Payout(gomock.Any(), 1, dec("25.00"), "payout-1").
					Return(&domain.WalletTransaction{ID: 3, Amount: dec("-25"), Kind: domain.KindDebit, Reason: domain.ReasonPayout, BalanceAfter: dec("75")}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Insufficient funds",
			body: `{"amount":"500"}`,
			prepareMock: func() {
				service.EXPECT().Payout(gomock.Any(), 1, dec("500"), "").
					Return(nil, fmt.Errorf("%w: balance 100.00", domain.ErrInsufficientFunds))
			},
			expectedCode:  http.StatusPaymentRequired,
			expectedError: "insufficient funds: balance 100.00",
		},
		{
			name:         "Negative amount",
			body:         `{"amount":"-5"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Too many decimals",
			body:         `{"amount":"1.005"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:          "Invalid body",
			body:          `{`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := withCaller(httptest.NewRequest(http.MethodPost, "/api/wallet/payout", bytes.NewBufferString(tt.body)), 1, domain.RoleSupplier)
			rr := httptest.NewRecorder()

			handler.Payout(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestAdjustHandler(t *testing.T) {
	handler, service := NewMock(t)
	tests := []struct {
		name         string
		userID       string
		body         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Negative correction",
			userID: "5",
			body:   `{"amount":"-10.00","idempotency_key":"ticket-1"}`,
			prepareMock: func() {
				service.EXPECT().Adjust(gomock.Any(), 5, dec("-10.00"), "ticket-1").
					Return(&domain.WalletTransaction{ID: 9, Amount: dec("-10"), Kind: domain.KindDebit, Reason: domain.ReasonAdjustment, BalanceAfter: dec("90")}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing idempotency key",
			userID:       "5",
			body:         `{"amount":"10"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Bad user id",
			userID:       "x",
			body:         `{"amount":"10","idempotency_key":"k"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := withCaller(httptest.NewRequest(http.MethodPost, "/api/admin/wallets/"+tt.userID+"/adjust", bytes.NewBufferString(tt.body)), 99, domain.RoleAdmin)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userID", tt.userID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rr := httptest.NewRecorder()

			handler.Adjust(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

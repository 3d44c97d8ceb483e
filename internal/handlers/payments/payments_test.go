package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/internal/gateway"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"
)

const secret = "test-secret"

func NewMock(t *testing.T) (*PaymentHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service, secret)
	return handler, service
}

func withCaller(r *http.Request, userID int, role domain.Role) *http.Request {
	ctx := context.WithValue(r.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.RoleKey, role)
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func strPtr(s string) *string { return &s }

func TestInitiatePaymentHandler(t *testing.T) {
	handler, service := NewMock(t)
	tests := []struct {
		name         string
		body         string
		prepareMock  func()
		expectedCode int
		expectedBody *dto.PaymentResponseDTO
	}{
		{
			name: "Card payment pending",
			body: `{"amount":"2500.00","method":"CARD","reference":"gw-1"}`,
			prepareMock: func() {
				service.EXPECT().Initiate(gomock.Any(), 1, 7, decimal.RequireFromString("2500.00"), domain.MethodCard, "gw-1").
					Return(&domain.Payment{ID: 11, OrderID: 7, Amount: decimal.RequireFromString("2500"), Method: domain.MethodCard,
						Status: domain.PaymentPending, Reference: strPtr("gw-1")}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: &dto.PaymentResponseDTO{ID: 11, OrderID: 7, Amount: "2500.00", Method: "CARD", Status: "PENDING",
				Reference: "gw-1", CreatedAt: "0001-01-01T00:00:00Z"},
		},
		{
			name: "Order already paid",
			body: `{"amount":"10","method":"WALLET"}`,
			prepareMock: func() {
				service.EXPECT().Initiate(gomock.Any(), 1, 7, decimal.RequireFromString("10"), domain.MethodWallet, "").
					Return(nil, fmt.Errorf("%w: order 7 is PAID", domain.ErrInvalidStateTransition))
			},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "Unknown method",
			body:         `{"amount":"10","method":"CASH"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Negative amount",
			body:         `{"amount":"-1","method":"CARD"}`,
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := httptest.NewRequest(http.MethodPost, "/api/orders/7/payments", bytes.NewBufferString(tt.body))
			req = withURLParam(withCaller(req, 1, domain.RoleBuyer), "id", "7")
			rr := httptest.NewRecorder()

			handler.InitiatePayment(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedBody != nil {
				var resp dto.PaymentResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, *tt.expectedBody, resp)
			}
		})
	}
}

func TestListPaymentsHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().ListForOrder(gomock.Any(), 1, 7).Return([]domain.Payment{
		{ID: 2, OrderID: 7, Amount: decimal.RequireFromString("500"), Status: domain.PaymentFailed, FailureReason: strPtr("card expired")},
		{ID: 1, OrderID: 7, Amount: decimal.RequireFromString("2000"), Status: domain.PaymentSuccess},
	}, nil)

	req := withURLParam(withCaller(httptest.NewRequest(http.MethodGet, "/api/orders/7/payments", http.NoBody), 1, domain.RoleBuyer), "id", "7")
	rr := httptest.NewRecorder()
	handler.ListPayments(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []dto.PaymentResponseDTO
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 2)
	assert.Equal(t, "card expired", resp[0].FailureReason)
}

func TestCallbackHandler(t *testing.T) {
	handler, service := NewMock(t)
	tests := []struct {
		name         string
		body         string
		signature    func(body string) string
		prepareMock  func()
		expectedCode int
		expectedBody *dto.CallbackResponseDTO
	}{
		{
			name:      "Success settles by reference",
			body:      `{"reference":"gw-1","status":"SUCCESS","event_id":"evt-1"}`,
			signature: func(b string) string { return gateway.Sign(secret, []byte(b)) },
			prepareMock: func() {
				service.EXPECT().ConfirmByReference(gomock.Any(), "gw-1").
					Return(&domain.Payment{ID: 11, Status: domain.PaymentSuccess}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.CallbackResponseDTO{PaymentID: 11, Status: "SUCCESS"},
		},
		{
			name:      "Failure without reason gets the default",
			body:      `{"reference":"gw-2","status":"FAILED"}`,
			signature: func(b string) string { return gateway.Sign(secret, []byte(b)) },
			prepareMock: func() {
				service.EXPECT().FailByReference(gomock.Any(), "gw-2", gateway.DefaultFailReason).
					Return(&domain.Payment{ID: 12, Status: domain.PaymentFailed}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.CallbackResponseDTO{PaymentID: 12, Status: "FAILED"},
		},
		{
			name:      "Failure after success conflicts",
			body:      `{"reference":"gw-1","status":"FAILED","reason":"late decline"}`,
			signature: func(b string) string { return gateway.Sign(secret, []byte(b)) },
			prepareMock: func() {
				service.EXPECT().FailByReference(gomock.Any(), "gw-1", "late decline").
					Return(nil, fmt.Errorf("%w: payment 11 is SUCCESS", domain.ErrInvalidStateTransition))
			},
			expectedCode: http.StatusConflict,
		},
		{
			name:         "Bad signature",
			body:         `{"reference":"gw-1","status":"SUCCESS"}`,
			signature:    func(string) string { return gateway.Sign("wrong", []byte("x")) },
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Missing signature",
			body:         `{"reference":"gw-1","status":"SUCCESS"}`,
			signature:    func(string) string { return "" },
			prepareMock:  func() {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Signed but off-schema",
			body:         `{"reference":"gw-1","status":"REFUNDED"}`,
			signature:    func(b string) string { return gateway.Sign(secret, []byte(b)) },
			prepareMock:  func() {},
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:      "Unknown reference",
			body:      `{"reference":"gw-404","status":"SUCCESS"}`,
			signature: func(b string) string { return gateway.Sign(secret, []byte(b)) },
			prepareMock: func() {
				service.EXPECT().ConfirmByReference(gomock.Any(), "gw-404").
					Return(nil, fmt.Errorf("%w: payment reference gw-404", domain.ErrNotFound))
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			req := httptest.NewRequest(http.MethodPost, "/api/gateway/callback", bytes.NewBufferString(tt.body))
			if sig := tt.signature(tt.body); sig != "" {
				req.Header.Set(gateway.SignatureHeader, sig)
			}
			rr := httptest.NewRecorder()

			handler.Callback(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedBody != nil {
				var resp dto.CallbackResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, *tt.expectedBody, resp)
			}
		})
	}
}

func TestAdminPaymentHandlers(t *testing.T) {
	handler, service := NewMock(t)

	t.Run("Confirm", func(t *testing.T) {
		service.EXPECT().Confirm(gomock.Any(), 11).Return(&domain.Payment{ID: 11, Status: domain.PaymentSuccess}, nil)
		req := withURLParam(withCaller(httptest.NewRequest(http.MethodPost, "/api/admin/payments/11/confirm", http.NoBody), 1, domain.RoleAdmin), "paymentID", "11")
		rr := httptest.NewRecorder()
		handler.ConfirmPayment(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Confirm with insufficient wallet funds", func(t *testing.T) {
		service.EXPECT().Confirm(gomock.Any(), 12).Return(nil, fmt.Errorf("%w: wallet 3", domain.ErrInsufficientFunds))
		req := withURLParam(withCaller(httptest.NewRequest(http.MethodPost, "/api/admin/payments/12/confirm", http.NoBody), 1, domain.RoleAdmin), "paymentID", "12")
		rr := httptest.NewRecorder()
		handler.ConfirmPayment(rr, req)
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	})

	t.Run("Fail", func(t *testing.T) {
		service.EXPECT().Fail(gomock.Any(), 11, "chargeback").Return(&domain.Payment{ID: 11, Status: domain.PaymentFailed}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/11/fail", bytes.NewBufferString(`{"reason":"chargeback"}`))
		req = withURLParam(withCaller(req, 1, domain.RoleAdmin), "paymentID", "11")
		rr := httptest.NewRecorder()
		handler.FailPayment(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Fail requires a reason", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/11/fail", bytes.NewBufferString(`{}`))
		req = withURLParam(withCaller(req, 1, domain.RoleAdmin), "paymentID", "11")
		rr := httptest.NewRecorder()
		handler.FailPayment(rr, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

package payments

import (
	"context"
	"io"
	"net/http"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/internal/gateway"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/GlebRadaev/partshub/pkg/logger"
	"github.com/GlebRadaev/partshub/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=payments.go -destination=mock_payments.go -package=payments

const maxCallbackBody = 64 << 10

type Service interface {
	Initiate(ctx context.Context, userID, orderID int, amount decimal.Decimal, method domain.PaymentMethod, reference string) (*domain.Payment, error)
	ListForOrder(ctx context.Context, userID, orderID int) ([]domain.Payment, error)
	Confirm(ctx context.Context, paymentID int) (*domain.Payment, error)
	Fail(ctx context.Context, paymentID int, reason string) (*domain.Payment, error)
	ConfirmByReference(ctx context.Context, reference string) (*domain.Payment, error)
	FailByReference(ctx context.Context, reference, reason string) (*domain.Payment, error)
}

type PaymentHandler struct {
	paymentService Service
	gatewaySecret  string
}

func New(paymentService Service, gatewaySecret string) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		gatewaySecret:  gatewaySecret,
	}
}

// InitiatePayment godoc
//
//	@Summary		Start a payment for an order
//	@Description	Gateway methods stay PENDING until the gateway reports back. WALLET settles from the buyer's wallet on confirmation.
//	@Tags			Payments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Order id"
//	@Param			request	body		dto.InitiatePaymentRequestDTO	true	"Payment"
//	@Success		201		{object}	dto.PaymentResponseDTO
//	@Failure		404		{object}	utils.Response	"Order not found"
//	@Failure		409		{object}	utils.Response	"Order not payable or reference already used"
//	@Failure		422		{object}	utils.Response	"Invalid amount or method"
//	@Router			/api/orders/{id}/payments [post]
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())
	orderID, ok := utils.PathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.InitiatePaymentRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}

	payment, err := h.paymentService.Initiate(r.Context(), userID, orderID, req.Amount, domain.PaymentMethod(req.Method), req.Reference)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewPaymentResponse(*payment))
}

// ListPayments godoc
//
//	@Summary	List payments of an order
//	@Tags		Payments
//	@Security	BearerAuth
//	@Produce	json
//	@Param		id	path		int	true	"Order id"
//	@Success	200	{array}		dto.PaymentResponseDTO
//	@Failure	404	{object}	utils.Response	"Order not found"
//	@Router		/api/orders/{id}/payments [get]
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())
	orderID, ok := utils.PathID(w, r, "id")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForOrder(r.Context(), userID, orderID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	resp := make([]dto.PaymentResponseDTO, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, dto.NewPaymentResponse(p))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Callback godoc
//
//	@Summary		Payment gateway callback
//	@Description	Body must be signed with the shared secret in the X-Gateway-Signature header. Redelivered callbacks are acknowledged without side effects.
//	@Tags			Gateway
//	@Accept			json
//	@Produce		json
//	@Param			X-Gateway-Signature	header		string			true	"hex HMAC-SHA256 of the body"
//	@Param			request				body		gateway.Callback	true	"Settlement"
//	@Success		200					{object}	dto.CallbackResponseDTO
//	@Failure		401					{object}	utils.Response	"Bad signature"
//	@Failure		404					{object}	utils.Response	"Unknown reference"
//	@Failure		409					{object}	utils.Response	"Contradicts an earlier settlement"
//	@Failure		422					{object}	utils.Response	"Malformed callback"
//	@Router			/api/gateway/callback [post]
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if !gateway.Verify(h.gatewaySecret, body, r.Header.Get(gateway.SignatureHeader)) {
		logger.FromContext(r.Context()).Warn("rejected gateway callback", zap.String("remote", r.RemoteAddr))
		utils.RespondWithDomainError(w, domain.ErrUnauthorized, true)
		return
	}
	cb, err := gateway.ParseCallback(body)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}

	var payment *domain.Payment
	switch domain.PaymentStatus(cb.Status) {
	case domain.PaymentSuccess:
		payment, err = h.paymentService.ConfirmByReference(r.Context(), cb.Reference)
	default:
		reason := cb.Reason
		if reason == "" {
			reason = gateway.DefaultFailReason
		}
		payment, err = h.paymentService.FailByReference(r.Context(), cb.Reference, reason)
	}
	if err != nil {
		logger.FromContext(r.Context()).Info("gateway callback not applied",
			zap.String("reference", cb.Reference),
			zap.String("eventID", cb.EventID),
			zap.Error(err))
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.CallbackResponseDTO{PaymentID: payment.ID, Status: string(payment.Status)})
}

// ConfirmPayment godoc
//
//	@Summary	Confirm a pending payment
//	@Tags		Admin
//	@Security	BearerAuth
//	@Produce	json
//	@Param		paymentID	path		int	true	"Payment id"
//	@Success	200			{object}	dto.PaymentResponseDTO
//	@Failure	402			{object}	utils.Response	"Buyer wallet cannot cover a WALLET payment"
//	@Failure	409			{object}	utils.Response	"Payment already failed or order not payable"
//	@Router		/api/admin/payments/{paymentID}/confirm [post]
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := utils.PathID(w, r, "paymentID")
	if !ok {
		return
	}
	payment, err := h.paymentService.Confirm(r.Context(), paymentID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPaymentResponse(*payment))
}

// FailPayment godoc
//
//	@Summary	Fail a pending payment
//	@Tags		Admin
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		paymentID	path		int							true	"Payment id"
//	@Param		request		body		dto.FailPaymentRequestDTO	true	"Reason"
//	@Success	200			{object}	dto.PaymentResponseDTO
//	@Failure	409			{object}	utils.Response	"Payment already succeeded"
//	@Router		/api/admin/payments/{paymentID}/fail [post]
func (h *PaymentHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := utils.PathID(w, r, "paymentID")
	if !ok {
		return
	}
	var req dto.FailPaymentRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	payment, err := h.paymentService.Fail(r.Context(), paymentID, req.Reason)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewPaymentResponse(*payment))
}

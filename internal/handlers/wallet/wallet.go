package wallet

import (
	"context"
	"net/http"
	"strconv"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/GlebRadaev/partshub/pkg/utils"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=wallet.go -destination=mock_wallet.go -package=wallet

type Service interface {
	GetWallet(ctx context.Context, userID int) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, userID int, limit int) ([]domain.WalletTransaction, error)
	Payout(ctx context.Context, userID int, amount decimal.Decimal, key string) (*domain.WalletTransaction, error)
	Adjust(ctx context.Context, userID int, amount decimal.Decimal, key string) (*domain.WalletTransaction, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet godoc
//
//	@Summary		Get current user wallet
//	@Description	Returns the balance of the authenticated user's wallet. The wallet is created on first access.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		503	{object}	utils.Response	"Storage unavailable"
//	@Router			/api/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	wallet, err := h.walletService.GetWallet(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		Currency: wallet.Currency,
		Balance:  wallet.Balance.StringFixed(2),
	})
}

// GetTransactions godoc
//
//	@Summary		List wallet ledger
//	@Description	Newest ledger entries first.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int	false	"Maximum entries, 100 at most"
//	@Success		200		{array}		dto.WalletTransactionDTO
//	@Success		204		{string}	string	"No transactions"
//	@Failure		401		{object}	utils.Response	"User not authorized"
//	@Router			/api/wallet/transactions [get]
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.walletService.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	resp := make([]dto.WalletTransactionDTO, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, dto.NewWalletTransaction(tx))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Payout godoc
//
//	@Summary		Withdraw funds
//	@Description	Debits the wallet. Repeating a request with the same idempotency key returns the original entry.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.PayoutRequestDTO	true	"Payout request"
//	@Success		200		{object}	dto.WalletTransactionDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		402		{object}	utils.Response	"Insufficient funds"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Router			/api/wallet/payout [post]
func (h *WalletHandler) Payout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	var req dto.PayoutRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	tx, err := h.walletService.Payout(r.Context(), userID, req.Amount, req.IdempotencyKey)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWalletTransaction(*tx))
}

// Adjust godoc
//
//	@Summary		Manual wallet adjustment
//	@Description	Admin-only signed correction of a user's wallet.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int						true	"Wallet owner"
//	@Param			request	body		dto.AdjustRequestDTO	true	"Adjustment"
//	@Success		200		{object}	dto.WalletTransactionDTO
//	@Failure		402		{object}	utils.Response	"Insufficient funds"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Router			/api/admin/wallets/{userID}/adjust [post]
func (h *WalletHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.PathID(w, r, "userID")
	if !ok {
		return
	}
	var req dto.AdjustRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	tx, err := h.walletService.Adjust(r.Context(), userID, req.Amount, req.IdempotencyKey)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewWalletTransaction(*tx))
}

package walletservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/pkg/validate"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=walletservice.go -destination=mock_walletservice.go -package=walletservice

const defaultListLimit = 100

type Repo interface {
	FindByUserID(ctx context.Context, userID int) (*domain.Wallet, error)
	Create(ctx context.Context, userID int, currency string) error
	AddBalance(ctx context.Context, walletID int, amount decimal.Decimal) (decimal.Decimal, error)
	SubtractBalance(ctx context.Context, walletID int, amount decimal.Decimal) (decimal.Decimal, error)
	InsertTransaction(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error)
	FindTransactionByKey(ctx context.Context, walletID int, key string) (*domain.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID int, limit int) ([]domain.WalletTransaction, error)
	OrderShares(ctx context.Context, orderID int) ([]domain.LedgerShare, error)
}

type Service struct {
	repo      Repo
	txManager pg.TXManager
	currency  string
	timeout   time.Duration
}

func New(cfg *config.Config, repo Repo, txManager pg.TXManager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		currency:  cfg.WalletCurrency,
		timeout:   cfg.DBTimeout,
	}
}

func validAmount(amount decimal.Decimal) bool {
	return validate.Money(amount)
}

// Credit adds amount to the user's wallet and appends a CREDIT row in the same transaction.
func (s *Service) Credit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error) {
	return s.apply(ctx, userID, amount, domain.KindCredit, reason, corr)
}

// Debit takes amount from the user's wallet iff the balance covers it, else ErrInsufficientFunds
// with nothing written. A repeated idempotency key returns the recorded transaction.
func (s *Service) Debit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error) {
	return s.apply(ctx, userID, amount, domain.KindDebit, reason, corr)
}

func (s *Service) apply(ctx context.Context, userID int, amount decimal.Decimal, kind domain.TransactionKind, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error) {
	if !validAmount(amount) {
		return nil, fmt.Errorf("%w: amount must be positive with at most two decimals, got %s", domain.ErrInvalidArgument, amount)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", domain.ErrInvalidArgument, reason)
	}
	if corr.IdempotencyKey == "" {
		corr.IdempotencyKey = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result *domain.WalletTransaction
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		wallet, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := s.repo.FindTransactionByKey(ctx, wallet.ID, corr.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Kind != kind || !existing.Amount.Abs().Equal(amount) {
				return fmt.Errorf("%w: idempotency key %q was used for a different movement", domain.ErrConflict, corr.IdempotencyKey)
			}
			result = existing
			return nil
		}

		signed := amount
		var balance decimal.Decimal
		if kind == domain.KindDebit {
			signed = amount.Neg()
			balance, err = s.repo.SubtractBalance(ctx, wallet.ID, amount)
		} else {
			balance, err = s.repo.AddBalance(ctx, wallet.ID, amount)
		}
		if err != nil {
			return err
		}

		result, err = s.repo.InsertTransaction(ctx, &domain.WalletTransaction{
			WalletID:       wallet.ID,
			Amount:         signed,
			Kind:           kind,
			Reason:         reason,
			PaymentID:      corr.PaymentID,
			OrderID:        corr.OrderID,
			IdempotencyKey: corr.IdempotencyKey,
			BalanceAfter:   balance,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			zap.L().Info("wallet debit rejected", zap.Int("userID", userID), zap.String("amount", amount.String()))
		} else {
			zap.L().Error("wallet movement failed", zap.Int("userID", userID), zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, pg.Wrap(err)
	}
	return result, nil
}

func (s *Service) getOrCreate(ctx context.Context, userID int) (*domain.Wallet, error) {
	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err != nil || wallet != nil {
		return wallet, err
	}
	if err := s.repo.Create(ctx, userID, s.currency); err != nil {
		return nil, err
	}
	wallet, err = s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet for user %d vanished after create", userID)
	}
	return wallet, nil
}

// GetWallet returns the user's wallet, creating an empty one on first access.
func (s *Service) GetWallet(ctx context.Context, userID int) (*domain.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	wallet, err := s.getOrCreate(ctx, userID)
	if err != nil {
		zap.L().Error("can't get wallet", zap.Int("userID", userID), zap.Error(err))
		return nil, pg.Wrap(err)
	}
	return wallet, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID int, limit int) ([]domain.WalletTransaction, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	wallet, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("can't get wallet", zap.Int("userID", userID), zap.Error(err))
		return nil, pg.Wrap(err)
	}
	if wallet == nil {
		return []domain.WalletTransaction{}, nil
	}
	txs, err := s.repo.ListTransactions(ctx, wallet.ID, limit)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	return txs, nil
}

// Payout withdraws supplier funds. The key lets a client retry safely.
func (s *Service) Payout(ctx context.Context, userID int, amount decimal.Decimal, key string) (*domain.WalletTransaction, error) {
	if key == "" {
		key = uuid.NewString()
	}
	return s.Debit(ctx, userID, amount, domain.ReasonPayout, domain.Correlation{IdempotencyKey: "payout:" + key})
}

// Adjust applies a signed manual correction.
func (s *Service) Adjust(ctx context.Context, userID int, amount decimal.Decimal, key string) (*domain.WalletTransaction, error) {
	if key == "" {
		key = uuid.NewString()
	}
	corr := domain.Correlation{IdempotencyKey: "adjust:" + key}
	if amount.IsNegative() {
		return s.Debit(ctx, userID, amount.Neg(), domain.ReasonAdjustment, corr)
	}
	return s.Credit(ctx, userID, amount, domain.ReasonAdjustment, corr)
}

// OrderShares reports what each supplier was credited for the order.
func (s *Service) OrderShares(ctx context.Context, orderID int) ([]domain.LedgerShare, error) {
	shares, err := s.repo.OrderShares(ctx, orderID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	return shares, nil
}

package walletrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const IdempotencyConstraint = "wallet_transactions_idempotency_key"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) (*domain.Wallet, error) {
	query := `
		SELECT id, user_id, currency, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	var w domain.Wallet
	err := r.db.QueryRow(ctx, query, userID).Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to get wallet", zap.Int("userID", userID), zap.Error(err))
		return nil, err
	}
	return &w, nil
}

// Create is a no-op when the user already has a wallet.
func (r *Repository) Create(ctx context.Context, userID int, currency string) error {
	query := `
		INSERT INTO wallets (user_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID, currency); err != nil {
		zap.L().Error("failed to create wallet", zap.Int("userID", userID), zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) AddBalance(ctx context.Context, walletID int, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance
	`
	var balance decimal.Decimal
	if err := r.db.QueryRow(ctx, query, amount, walletID).Scan(&balance); err != nil {
		zap.L().Error("failed to credit wallet", zap.Int("walletID", walletID), zap.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}

// SubtractBalance decrements only when the balance covers amount. It returns ErrInsufficientFunds
// and changes nothing otherwise.
func (r *Repository) SubtractBalance(ctx context.Context, walletID int, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE wallets
		SET balance = balance - $1, updated_at = now()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, query, amount, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: wallet %d", domain.ErrInsufficientFunds, walletID)
		}
		zap.L().Error("failed to debit wallet", zap.Int("walletID", walletID), zap.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, tx *domain.WalletTransaction) (*domain.WalletTransaction, error) {
	query := `
		INSERT INTO wallet_transactions (wallet_id, amount, kind, reason, payment_id, order_id, idempotency_key, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		tx.WalletID, tx.Amount, tx.Kind, tx.Reason, tx.PaymentID, tx.OrderID, tx.IdempotencyKey, tx.BalanceAfter,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err, IdempotencyConstraint) {
			return nil, fmt.Errorf("%w: idempotency key %q already used", domain.ErrConflict, tx.IdempotencyKey)
		}
		zap.L().Error("failed to append wallet transaction", zap.Int("walletID", tx.WalletID), zap.Error(err))
		return nil, err
	}
	return tx, nil
}

const transactionColumns = `id, wallet_id, amount, kind, reason, payment_id, order_id, idempotency_key, balance_after, created_at`

func scanTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	var tx domain.WalletTransaction
	err := row.Scan(&tx.ID, &tx.WalletID, &tx.Amount, &tx.Kind, &tx.Reason, &tx.PaymentID, &tx.OrderID,
		&tx.IdempotencyKey, &tx.BalanceAfter, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *Repository) FindTransactionByKey(ctx context.Context, walletID int, key string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE wallet_id = $1 AND idempotency_key = $2`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, walletID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("failed to find wallet transaction", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return tx, nil
}

func (r *Repository) ListTransactions(ctx context.Context, walletID int, limit int) ([]domain.WalletTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, walletID, limit)
	if err != nil {
		zap.L().Error("failed to list wallet transactions", zap.Int("walletID", walletID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			zap.L().Error("failed to scan wallet transaction", zap.Error(err))
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// OrderShares sums, per user, what the order's payments credited into supplier wallets.
func (r *Repository) OrderShares(ctx context.Context, orderID int) ([]domain.LedgerShare, error) {
	query := `
		SELECT w.user_id, SUM(t.amount)
		FROM wallet_transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE t.order_id = $1 AND t.reason = 'ORDER_PAYMENT' AND t.kind = 'CREDIT'
		GROUP BY w.user_id
		ORDER BY w.user_id
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		zap.L().Error("failed to sum order credits", zap.Int("orderID", orderID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var shares []domain.LedgerShare
	for rows.Next() {
		var s domain.LedgerShare
		if err := rows.Scan(&s.UserID, &s.Amount); err != nil {
			zap.L().Error("failed to scan order credit", zap.Error(err))
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

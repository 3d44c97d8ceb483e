package walletrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	return New(mockDB), mockDB
}

func intPtr(v int) *int { return &v }

var txColumns = []string{"id", "wallet_id", "amount", "kind", "reason", "payment_id", "order_id", "idempotency_key", "balance_after", "created_at"}

func TestRepository_FindByUserID(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, user_id, currency, balance, created_at, updated_at FROM wallets WHERE user_id = $1`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		result    *domain.Wallet
	}{
		{
			name: "Wallet found",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(7).
					WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "currency", "balance", "created_at", "updated_at"}).
						AddRow(1, 7, "USD", decimal.RequireFromString("12.50"), now, now))
			},
			result: &domain.Wallet{ID: 1, UserID: 7, Currency: "USD", Balance: decimal.RequireFromString("12.50"), CreatedAt: now, UpdatedAt: now},
		},
		{
			name: "No wallet yet",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(7).WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(7).WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByUserID(context.Background(), 7)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta(`INSERT INTO wallets (user_id, currency) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`)

	mock.ExpectExec(query).WithArgs(7, "USD").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	assert.NoError(t, repo.Create(context.Background(), 7, "USD"))

	mock.ExpectExec(query).WithArgs(7, "USD").WillReturnError(errors.New("database error"))
	assert.Error(t, repo.Create(context.Background(), 7, "USD"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SubtractBalance(t *testing.T) {
	repo, mock := NewMock(t)
	amount := decimal.RequireFromString("30.00")
	query := regexp.QuoteMeta(`UPDATE wallets SET balance = balance - $1, updated_at = now() WHERE id = $2 AND balance >= $1 RETURNING balance`)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr error
		anyErr    bool
		balance   decimal.Decimal
	}{
		{
			name: "Enough funds",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(amount, 1).
					WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.RequireFromString("70.00")))
			},
			balance: decimal.RequireFromString("70.00"),
		},
		{
			name: "Condition not met",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(amount, 1).WillReturnError(pgx.ErrNoRows)
			},
			expectErr: domain.ErrInsufficientFunds,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(query).WithArgs(amount, 1).WillReturnError(errors.New("database error"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			balance, err := repo.SubtractBalance(context.Background(), 1, amount)
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.False(t, errors.Is(err, domain.ErrInsufficientFunds))
			default:
				assert.NoError(t, err)
				assert.True(t, tt.balance.Equal(balance))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_AddBalance(t *testing.T) {
	repo, mock := NewMock(t)
	amount := decimal.RequireFromString("2500.00")

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2 RETURNING balance`)).
		WithArgs(amount, 3).
		WillReturnRows(pgxmock.NewRows([]string{"balance"}).AddRow(decimal.RequireFromString("2500.00")))

	balance, err := repo.AddBalance(context.Background(), 3, amount)
	require.NoError(t, err)
	assert.Equal(t, "2500", balance.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_InsertTransaction(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`INSERT INTO wallet_transactions (wallet_id, amount, kind, reason, payment_id, order_id, idempotency_key, balance_after) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`)

	newTx := func() *domain.WalletTransaction {
		return &domain.WalletTransaction{
			WalletID:       3,
			Amount:         decimal.RequireFromString("-30.00"),
			Kind:           domain.KindDebit,
			Reason:         domain.ReasonPayout,
			IdempotencyKey: "payout-1",
			BalanceAfter:   decimal.RequireFromString("70.00"),
		}
	}

	t.Run("Appended", func(t *testing.T) {
		tx := newTx()
		mock.ExpectQuery(query).
			WithArgs(3, tx.Amount, domain.KindDebit, domain.ReasonPayout, (*int)(nil), (*int)(nil), "payout-1", tx.BalanceAfter).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

		got, err := repo.InsertTransaction(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, 11, got.ID)
		assert.Equal(t, now, got.CreatedAt)
	})

	t.Run("Duplicate idempotency key", func(t *testing.T) {
		tx := newTx()
		mock.ExpectQuery(query).
			WithArgs(3, tx.Amount, domain.KindDebit, domain.ReasonPayout, (*int)(nil), (*int)(nil), "payout-1", tx.BalanceAfter).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: IdempotencyConstraint})

		_, err := repo.InsertTransaction(context.Background(), tx)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindTransactionByKey(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, wallet_id, amount, kind, reason, payment_id, order_id, idempotency_key, balance_after, created_at FROM wallet_transactions WHERE wallet_id = $1 AND idempotency_key = $2`)

	mock.ExpectQuery(query).WithArgs(3, "payment:5:supplier:9").
		WillReturnRows(pgxmock.NewRows(txColumns).AddRow(
			8, 3, decimal.RequireFromString("2500.00"), domain.KindCredit, domain.ReasonOrderPayment,
			intPtr(5), intPtr(42), "payment:5:supplier:9", decimal.RequireFromString("2500.00"), now,
		))

	tx, err := repo.FindTransactionByKey(context.Background(), 3, "payment:5:supplier:9")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, 8, tx.ID)
	assert.Equal(t, domain.KindCredit, tx.Kind)
	assert.Equal(t, 5, *tx.PaymentID)
	assert.Equal(t, 42, *tx.OrderID)

	mock.ExpectQuery(query).WithArgs(3, "missing").WillReturnError(pgx.ErrNoRows)
	tx, err = repo.FindTransactionByKey(context.Background(), 3, "missing")
	assert.NoError(t, err)
	assert.Nil(t, tx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListTransactions(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	query := regexp.QuoteMeta(`SELECT id, wallet_id, amount, kind, reason, payment_id, order_id, idempotency_key, balance_after, created_at FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`)

	mock.ExpectQuery(query).WithArgs(3, 50).
		WillReturnRows(pgxmock.NewRows(txColumns).
			AddRow(9, 3, decimal.RequireFromString("-30.00"), domain.KindDebit, domain.ReasonPayout, (*int)(nil), (*int)(nil), "payout-1", decimal.RequireFromString("70.00"), now).
			AddRow(8, 3, decimal.RequireFromString("100.00"), domain.KindCredit, domain.ReasonAdjustment, (*int)(nil), (*int)(nil), "adj-1", decimal.RequireFromString("100.00"), now.Add(-time.Minute)))

	txs, err := repo.ListTransactions(context.Background(), 3, 50)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 9, txs[0].ID)
	assert.Nil(t, txs[0].PaymentID)
	assert.Equal(t, domain.ReasonAdjustment, txs[1].Reason)

	mock.ExpectQuery(query).WithArgs(3, 50).WillReturnError(errors.New("database error"))
	_, err = repo.ListTransactions(context.Background(), 3, 50)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_OrderShares(t *testing.T) {
	repo, mock := NewMock(t)
	query := regexp.QuoteMeta(`SELECT w.user_id, SUM(t.amount) FROM wallet_transactions t JOIN wallets w ON w.id = t.wallet_id WHERE t.order_id = $1 AND t.reason = 'ORDER_PAYMENT' AND t.kind = 'CREDIT' GROUP BY w.user_id ORDER BY w.user_id`)

	mock.ExpectQuery(query).WithArgs(42).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "sum"}).
			AddRow(9, decimal.RequireFromString("2000.00")).
			AddRow(10, decimal.RequireFromString("500.00")))

	shares, err := repo.OrderShares(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []domain.LedgerShare{
		{UserID: 9, Amount: decimal.RequireFromString("2000.00")},
		{UserID: 10, Amount: decimal.RequireFromString("500.00")},
	}, shares)
	assert.NoError(t, mock.ExpectationsWereMet())
}

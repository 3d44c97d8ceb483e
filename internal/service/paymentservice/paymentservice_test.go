package paymentservice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"
)

type mocks struct {
	payments *MockPaymentRepo
	orders   *MockOrderRepo
	wallet   *MockWallet
	tracker  *MockTracker
	notifier *MockNotifier
}

func NewMock(t *testing.T, fee float64) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		payments: NewMockPaymentRepo(ctrl),
		orders:   NewMockOrderRepo(ctrl),
		wallet:   NewMockWallet(ctrl),
		tracker:  NewMockTracker(ctrl),
		notifier: NewMockNotifier(ctrl),
	}
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn pg.TransactionalFn) error { return fn(ctx) },
	).AnyTimes()
	cfg := &config.Config{PlatformFeePercent: fee, DBTimeout: time.Second}
	return New(cfg, m.payments, m.orders, m.wallet, m.tracker, m.notifier, txManager), m
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// decEq matches a decimal by value regardless of its internal scale.
type decEq decimal.Decimal

func (d decEq) Matches(x any) bool {
	v, ok := x.(decimal.Decimal)
	return ok && v.Equal(decimal.Decimal(d))
}

func (d decEq) String() string { return "decimal equal to " + decimal.Decimal(d).String() }

func amountOf(s string) gomock.Matcher { return decEq(dec(s)) }

func pendingOrder(total string) *domain.Order {
	return &domain.Order{ID: 4, UserID: 9, TrackingCode: "PH000000000018", Status: domain.OrderPending, Total: dec(total)}
}

func TestInitiate(t *testing.T) {
	tests := []struct {
		name        string
		userID      int
		amount      decimal.Decimal
		method      domain.PaymentMethod
		reference   string
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name:        "zero amount",
			userID:      9,
			amount:      decimal.Zero,
			method:      domain.MethodCard,
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrInvalidArgument,
		},
		{
			name:        "fractional cents",
			userID:      9,
			amount:      dec("1.005"),
			method:      domain.MethodCard,
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrInvalidArgument,
		},
		{
			name:   "trailing zeros are not extra decimals",
			userID: 9,
			amount: dec("50.000"),
			method: domain.MethodCard,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(dec("50"), nil)
				m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
						p.ID = 11
						return p, nil
					})
			},
		},
		{
			name:        "unknown method",
			userID:      9,
			amount:      dec("10"),
			method:      "CRYPTO",
			prepareMock: func(m *mocks) {},
			wantErr:     domain.ErrInvalidArgument,
		},
		{
			name:   "order of another user",
			userID: 10,
			amount: dec("10"),
			method: domain.MethodCard,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:   "order already paid",
			userID: 9,
			amount: dec("10"),
			method: domain.MethodCard,
			prepareMock: func(m *mocks) {
				o := pendingOrder("100")
				o.Status = domain.OrderPaid
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(o, nil)
			},
			wantErr: domain.ErrInvalidStateTransition,
		},
		{
			name:   "amount exceeds outstanding",
			userID: 9,
			amount: dec("60"),
			method: domain.MethodCard,
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(dec("50"), nil)
			},
			wantErr: domain.ErrInvalidArgument,
		},
		{
			name:      "duplicate reference",
			userID:    9,
			amount:    dec("50"),
			method:    domain.MethodCard,
			reference: "gw-1",
			prepareMock: func(m *mocks) {
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(dec("50"), nil)
				m.payments.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(nil, fmt.Errorf("%w: payment reference already recorded", domain.ErrConflict))
			},
			wantErr: domain.ErrConflict,
		},
		{
			name:      "recorded as pending",
			userID:    9,
			amount:    dec("50"),
			method:    domain.MethodCard,
			reference: "gw-1",
			prepareMock: func(m *mocks) {
				ref := "gw-1"
				m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(dec("50"), nil)
				m.payments.EXPECT().Create(gomock.Any(), &domain.Payment{
					OrderID: 4, UserID: 9, Amount: dec("50"), Method: domain.MethodCard,
					Status: domain.PaymentPending, Reference: &ref,
				}).DoAndReturn(func(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
					p.ID = 11
					return p, nil
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, 0)
			tt.prepareMock(m)

			got, err := service.Initiate(context.Background(), tt.userID, 4, tt.amount, tt.method, tt.reference)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 11, got.ID)
			assert.Equal(t, domain.PaymentPending, got.Status)
		})
	}
}

func TestSplitShares(t *testing.T) {
	item := func(supplier int, qty int, price string) domain.OrderItem {
		return domain.OrderItem{SupplierID: supplier, Quantity: qty, UnitPrice: dec(price)}
	}

	tests := []struct {
		name   string
		amount string
		total  string
		items  []domain.OrderItem
		fee    string
		want   map[int]string
	}{
		{
			name:   "single supplier takes everything",
			amount: "2500", total: "2500",
			items: []domain.OrderItem{item(5, 1, "2500")},
			fee:   "0",
			want:  map[int]string{5: "2500"},
		},
		{
			name:   "two suppliers split by subtotal",
			amount: "2500", total: "2500",
			items: []domain.OrderItem{item(6, 1, "500"), item(5, 2, "1000")},
			fee:   "0",
			want:  map[int]string{5: "2000", 6: "500"},
		},
		{
			name:   "partial payment splits proportionally",
			amount: "1000", total: "2500",
			items: []domain.OrderItem{item(5, 2, "1000"), item(6, 1, "500")},
			fee:   "0",
			want:  map[int]string{5: "800", 6: "200"},
		},
		{
			name:   "remainder goes to the last supplier",
			amount: "100", total: "3",
			items: []domain.OrderItem{item(1, 1, "1"), item(2, 1, "1"), item(3, 1, "1")},
			fee:   "0",
			want:  map[int]string{1: "33.33", 2: "33.33", 3: "33.34"},
		},
		{
			name:   "platform fee is deducted",
			amount: "2500", total: "2500",
			items: []domain.OrderItem{item(5, 2, "1000"), item(6, 1, "500")},
			fee:   "10",
			want:  map[int]string{5: "1800", 6: "450"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := SplitShares(dec(tt.amount), dec(tt.total), tt.items, dec(tt.fee))
			require.Len(t, shares, len(tt.want))
			gross := decimal.Zero
			for i, share := range shares {
				if i > 0 {
					assert.Less(t, shares[i-1].UserID, share.UserID)
				}
				assert.True(t, dec(tt.want[share.UserID]).Equal(share.Amount), "supplier %d got %s", share.UserID, share.Amount)
				gross = gross.Add(share.Amount)
			}
			if tt.fee == "0" {
				assert.True(t, gross.Equal(dec(tt.amount)), "shares must add up to the amount")
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	card := func(status domain.PaymentStatus, amount string) *domain.Payment {
		return &domain.Payment{ID: 11, OrderID: 4, UserID: 9, Amount: dec(amount), Method: domain.MethodCard, Status: status}
	}
	twoSuppliers := []domain.OrderItem{
		{SupplierID: 5, Quantity: 2, UnitPrice: dec("1000")},
		{SupplierID: 6, Quantity: 1, UnitPrice: dec("500")},
	}

	tests := []struct {
		name        string
		prepareMock func(m *mocks)
		wantErr     error
		wantStatus  domain.PaymentStatus
	}{
		{
			name: "unknown payment",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(nil, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "already confirmed is a no-op",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentSuccess, "2500"), nil)
			},
			wantStatus: domain.PaymentSuccess,
		},
		{
			name: "failed payment cannot be confirmed",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentFailed, "2500"), nil)
			},
			wantErr: domain.ErrInvalidStateTransition,
		},
		{
			name: "would exceed the order total",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentPending, "2500"), nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(dec("100"), nil)
			},
			wantErr: domain.ErrInvalidStateTransition,
		},
		{
			name: "full card payment credits both suppliers and pays the order",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentPending, "2500"), nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(decimal.Zero, nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 4).Return(twoSuppliers, nil)
				m.wallet.EXPECT().Credit(gomock.Any(), 5, amountOf("2000"), domain.ReasonOrderPayment, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ int, _ decimal.Decimal, _ domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error) {
						assert.Equal(t, "payment:11:supplier:5", corr.IdempotencyKey)
						assert.Equal(t, 11, *corr.PaymentID)
						assert.Equal(t, 4, *corr.OrderID)
						return &domain.WalletTransaction{}, nil
					})
				m.wallet.EXPECT().Credit(gomock.Any(), 6, amountOf("500"), domain.ReasonOrderPayment, gomock.Any()).
					Return(&domain.WalletTransaction{}, nil)
				m.payments.EXPECT().Settle(gomock.Any(), 11, domain.PaymentSuccess, nil).Return(card(domain.PaymentSuccess, "2500"), nil)
				m.tracker.EXPECT().Advance(gomock.Any(), pendingOrder("2500"), domain.OrderPaid, "payment settled").
					Return(&domain.Order{ID: 4, UserID: 9, Status: domain.OrderPaid}, nil)
				m.notifier.EXPECT().Notify(gomock.Any()).Times(2)
			},
			wantStatus: domain.PaymentSuccess,
		},
		{
			name: "partial payment leaves the order pending",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentPending, "1000"), nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(decimal.Zero, nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 4).Return(twoSuppliers, nil)
				m.wallet.EXPECT().Credit(gomock.Any(), 5, amountOf("800"), domain.ReasonOrderPayment, gomock.Any()).Return(&domain.WalletTransaction{}, nil)
				m.wallet.EXPECT().Credit(gomock.Any(), 6, amountOf("200"), domain.ReasonOrderPayment, gomock.Any()).Return(&domain.WalletTransaction{}, nil)
				m.payments.EXPECT().Settle(gomock.Any(), 11, domain.PaymentSuccess, nil).Return(card(domain.PaymentSuccess, "1000"), nil)
				m.notifier.EXPECT().Notify(gomock.Any())
			},
			wantStatus: domain.PaymentSuccess,
		},
		{
			name: "wallet payment debits the buyer first",
			prepareMock: func(m *mocks) {
				p := card(domain.PaymentPending, "2500")
				p.Method = domain.MethodWallet
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(p, nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(decimal.Zero, nil)
				debit := m.wallet.EXPECT().Debit(gomock.Any(), 9, amountOf("2500"), domain.ReasonOrderPayment, gomock.Any()).
					Return(&domain.WalletTransaction{}, nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 4).Return([]domain.OrderItem{{SupplierID: 5, Quantity: 1, UnitPrice: dec("2500")}}, nil)
				m.wallet.EXPECT().Credit(gomock.Any(), 5, amountOf("2500"), domain.ReasonOrderPayment, gomock.Any()).
					Return(&domain.WalletTransaction{}, nil).After(debit)
				m.payments.EXPECT().Settle(gomock.Any(), 11, domain.PaymentSuccess, nil).Return(card(domain.PaymentSuccess, "2500"), nil)
				m.tracker.EXPECT().Advance(gomock.Any(), gomock.Any(), domain.OrderPaid, gomock.Any()).
					Return(&domain.Order{ID: 4, Status: domain.OrderPaid}, nil)
				m.notifier.EXPECT().Notify(gomock.Any()).Times(2)
			},
			wantStatus: domain.PaymentSuccess,
		},
		{
			name: "insufficient buyer wallet leaves the payment pending",
			prepareMock: func(m *mocks) {
				p := card(domain.PaymentPending, "2500")
				p.Method = domain.MethodWallet
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(p, nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(decimal.Zero, nil)
				m.wallet.EXPECT().Debit(gomock.Any(), 9, amountOf("2500"), domain.ReasonOrderPayment, gomock.Any()).
					Return(nil, domain.ErrInsufficientFunds)
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "lost compare-and-set",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(card(domain.PaymentPending, "500"), nil)
				m.orders.EXPECT().FindByIDForUpdate(gomock.Any(), 4).Return(pendingOrder("2500"), nil)
				m.payments.EXPECT().SettledAmount(gomock.Any(), 4).Return(decimal.Zero, nil)
				m.orders.EXPECT().FindItems(gomock.Any(), 4).Return([]domain.OrderItem{{SupplierID: 5, Quantity: 1, UnitPrice: dec("2500")}}, nil)
				m.wallet.EXPECT().Credit(gomock.Any(), 5, amountOf("500"), domain.ReasonOrderPayment, gomock.Any()).Return(&domain.WalletTransaction{}, nil)
				m.payments.EXPECT().Settle(gomock.Any(), 11, domain.PaymentSuccess, nil).Return(nil, nil)
			},
			wantErr: domain.ErrInvalidStateTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, 0)
			tt.prepareMock(m)

			got, err := service.Confirm(context.Background(), 11)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestFail(t *testing.T) {
	payment := func(status domain.PaymentStatus) *domain.Payment {
		return &domain.Payment{ID: 11, OrderID: 4, UserID: 9, Amount: dec("10"), Method: domain.MethodCard, Status: status}
	}

	tests := []struct {
		name        string
		prepareMock func(m *mocks)
		wantErr     error
	}{
		{
			name: "pending payment fails",
			prepareMock: func(m *mocks) {
				reason := "card declined"
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(payment(domain.PaymentPending), nil)
				m.payments.EXPECT().Settle(gomock.Any(), 11, domain.PaymentFailed, &reason).Return(payment(domain.PaymentFailed), nil)
				m.notifier.EXPECT().Notify(gomock.Any())
			},
		},
		{
			name: "already failed is a no-op",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(payment(domain.PaymentFailed), nil)
			},
		},
		{
			name: "successful payment cannot fail",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(payment(domain.PaymentSuccess), nil)
			},
			wantErr: domain.ErrInvalidStateTransition,
		},
		{
			name: "database unavailable",
			prepareMock: func(m *mocks) {
				m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(nil, context.DeadlineExceeded)
			},
			wantErr: domain.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, 0)
			tt.prepareMock(m)

			got, err := service.Fail(context.Background(), 11, "card declined")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentFailed, got.Status)
		})
	}
}

func TestByReference(t *testing.T) {
	service, m := NewMock(t, 0)

	_, err := service.ConfirmByReference(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	m.payments.EXPECT().FindByReference(gomock.Any(), "gw-missing").Return(nil, nil)
	_, err = service.FailByReference(context.Background(), "gw-missing", "declined")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	done := &domain.Payment{ID: 11, OrderID: 4, Status: domain.PaymentSuccess}
	m.payments.EXPECT().FindByReference(gomock.Any(), "gw-1").Return(done, nil)
	m.payments.EXPECT().FindByIDForUpdate(gomock.Any(), 11).Return(done, nil)
	got, err := service.ConfirmByReference(context.Background(), "gw-1")
	require.NoError(t, err)
	assert.Equal(t, 11, got.ID)
}

func TestListForOrder(t *testing.T) {
	service, m := NewMock(t, 0)

	m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
	_, err := service.ListForOrder(context.Background(), 10, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	m.orders.EXPECT().FindByID(gomock.Any(), 4).Return(pendingOrder("100"), nil)
	m.payments.EXPECT().ListByOrder(gomock.Any(), 4).Return(nil, nil)
	got, err := service.ListForOrder(context.Background(), 9, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestStalePending(t *testing.T) {
	service, m := NewMock(t, 0)
	before := time.Now()

	m.payments.EXPECT().FindStalePending(gomock.Any(), gomock.Any(), 50).
		DoAndReturn(func(_ context.Context, olderThan time.Time, _ int) ([]domain.Payment, error) {
			assert.WithinDuration(t, before.Add(-time.Minute), olderThan, 5*time.Second)
			return []domain.Payment{{ID: 1}}, nil
		})

	got, err := service.StalePending(context.Background(), time.Minute, 50)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

package paymentservice

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/pkg/validate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=paymentservice.go -destination=mock_paymentservice.go -package=paymentservice

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Payment, error)
	FindByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID int) ([]domain.Payment, error)
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error)
	SettledAmount(ctx context.Context, orderID int) (decimal.Decimal, error)
	Settle(ctx context.Context, id int, status domain.PaymentStatus, reason *string) (*domain.Payment, error)
}

type OrderRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	FindItems(ctx context.Context, orderIDs ...int) ([]domain.OrderItem, error)
}

type Wallet interface {
	Credit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error)
	Debit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error)
}

type Tracker interface {
	Advance(ctx context.Context, order *domain.Order, to domain.OrderStatus, note string) (*domain.Order, error)
}

type Notifier interface {
	Notify(n domain.Notification)
}

type Service struct {
	payments  PaymentRepo
	orders    OrderRepo
	wallet    Wallet
	tracker   Tracker
	notifier  Notifier
	txManager pg.TXManager
	fee       decimal.Decimal
	timeout   time.Duration
}

func New(cfg *config.Config, payments PaymentRepo, orders OrderRepo, wallet Wallet, tracker Tracker, notifier Notifier, txManager pg.TXManager) *Service {
	return &Service{
		payments:  payments,
		orders:    orders,
		wallet:    wallet,
		tracker:   tracker,
		notifier:  notifier,
		txManager: txManager,
		fee:       decimal.NewFromFloat(cfg.PlatformFeePercent),
		timeout:   cfg.DBTimeout,
	}
}

func validAmount(amount decimal.Decimal) bool {
	return validate.Money(amount)
}

// Initiate records a PENDING payment against the caller's own PENDING order.
func (s *Service) Initiate(ctx context.Context, userID, orderID int, amount decimal.Decimal, method domain.PaymentMethod, reference string) (*domain.Payment, error) {
	if !validAmount(amount) {
		return nil, fmt.Errorf("%w: amount must be positive with at most two decimals", domain.ErrInvalidArgument)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, method)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if order.Status != domain.OrderPending {
		return nil, fmt.Errorf("%w: order %d is %s", domain.ErrInvalidStateTransition, order.ID, order.Status)
	}

	settled, err := s.payments.SettledAmount(ctx, order.ID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if settled.Add(amount).GreaterThan(order.Total) {
		return nil, fmt.Errorf("%w: %s exceeds the outstanding %s", domain.ErrInvalidArgument, amount, order.Total.Sub(settled))
	}

	payment := &domain.Payment{
		OrderID: order.ID,
		UserID:  userID,
		Amount:  amount,
		Method:  method,
		Status:  domain.PaymentPending,
	}
	if reference != "" {
		payment.Reference = &reference
	}
	payment, err = s.payments.Create(ctx, payment)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	zap.L().Info("payment initiated", zap.Int("paymentID", payment.ID), zap.Int("orderID", order.ID), zap.String("method", string(method)))
	return payment, nil
}

// Confirm settles a PENDING payment and distributes it to supplier wallets. Confirming an
// already successful payment returns it unchanged.
func (s *Service) Confirm(ctx context.Context, paymentID int) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		result  *domain.Payment
		changed bool
		paid    *domain.Order
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		switch payment.Status {
		case domain.PaymentSuccess:
			result = payment
			return nil
		case domain.PaymentFailed:
			return fmt.Errorf("%w: payment %d already failed", domain.ErrInvalidStateTransition, payment.ID)
		}

		order, err := s.orders.FindByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, payment.OrderID)
		}
		if order.Status != domain.OrderPending {
			return fmt.Errorf("%w: order %d is %s", domain.ErrInvalidStateTransition, order.ID, order.Status)
		}

		settled, err := s.payments.SettledAmount(ctx, order.ID)
		if err != nil {
			return err
		}
		settled = settled.Add(payment.Amount)
		if settled.GreaterThan(order.Total) {
			return fmt.Errorf("%w: payment %d would exceed the order total", domain.ErrInvalidStateTransition, payment.ID)
		}

		if err := s.distribute(ctx, payment, order); err != nil {
			return err
		}

		result, err = s.payments.Settle(ctx, payment.ID, domain.PaymentSuccess, nil)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: payment %d is no longer pending", domain.ErrInvalidStateTransition, payment.ID)
		}
		changed = true

		if settled.Equal(order.Total) {
			paid, err = s.tracker.Advance(ctx, order, domain.OrderPaid, "payment settled")
			return err
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("payment confirmation failed", zap.Int("paymentID", paymentID), zap.Error(err))
		return nil, pg.Wrap(err)
	}

	if changed {
		zap.L().Info("payment confirmed", zap.Int("paymentID", result.ID), zap.Int("orderID", result.OrderID))
		s.notifier.Notify(domain.Notification{
			Event:     domain.EventPaymentConfirmed,
			UserID:    result.UserID,
			OrderID:   result.OrderID,
			PaymentID: result.ID,
			Status:    string(result.Status),
			Amount:    result.Amount.StringFixed(2),
		})
	}
	if paid != nil {
		s.notifier.Notify(domain.Notification{
			Event:        domain.EventOrderStatusChanged,
			UserID:       paid.UserID,
			OrderID:      paid.ID,
			TrackingCode: paid.TrackingCode,
			Status:       string(paid.Status),
		})
	}
	return result, nil
}

// distribute debits the buyer for wallet payments and credits every supplier its share.
func (s *Service) distribute(ctx context.Context, payment *domain.Payment, order *domain.Order) error {
	paymentID, orderID := payment.ID, order.ID
	if payment.Method == domain.MethodWallet {
		_, err := s.wallet.Debit(ctx, payment.UserID, payment.Amount, domain.ReasonOrderPayment, domain.Correlation{
			PaymentID:      &paymentID,
			OrderID:        &orderID,
			IdempotencyKey: fmt.Sprintf("payment:%d:debit", paymentID),
		})
		if err != nil {
			return err
		}
	}

	items, err := s.orders.FindItems(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, share := range SplitShares(payment.Amount, order.Total, items, s.fee) {
		_, err := s.wallet.Credit(ctx, share.UserID, share.Amount, domain.ReasonOrderPayment, domain.Correlation{
			PaymentID:      &paymentID,
			OrderID:        &orderID,
			IdempotencyKey: fmt.Sprintf("payment:%d:supplier:%d", paymentID, share.UserID),
		})
		if err != nil {
			return fmt.Errorf("credit supplier %d: %w", share.UserID, err)
		}
	}
	return nil
}

// SplitShares divides amount between suppliers in proportion to their subtotal of total,
// rounded to cents with the remainder going to the supplier with the highest id, then takes
// feePercent off each share. Suppliers whose net share is not positive are left out.
func SplitShares(amount, total decimal.Decimal, items []domain.OrderItem, feePercent decimal.Decimal) []domain.LedgerShare {
	subtotals := make(map[int]decimal.Decimal)
	for _, item := range items {
		subtotals[item.SupplierID] = subtotals[item.SupplierID].Add(item.Subtotal())
	}
	suppliers := make([]int, 0, len(subtotals))
	for id := range subtotals {
		suppliers = append(suppliers, id)
	}
	sort.Ints(suppliers)

	if len(suppliers) == 0 || !total.IsPositive() {
		return nil
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]domain.LedgerShare, 0, len(suppliers))
	allocated := decimal.Zero
	for i, id := range suppliers {
		gross := amount.Sub(allocated)
		if i < len(suppliers)-1 {
			gross = amount.Mul(subtotals[id]).Div(total).Round(2)
		}
		allocated = allocated.Add(gross)

		net := gross
		if feePercent.IsPositive() {
			net = gross.Sub(gross.Mul(feePercent).Div(hundred).Round(2))
		}
		if !net.IsPositive() {
			continue
		}
		shares = append(shares, domain.LedgerShare{UserID: id, Amount: net})
	}
	return shares
}

// Fail moves a PENDING payment to FAILED without touching any wallet.
func (s *Service) Fail(ctx context.Context, paymentID int, reason string) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		result  *domain.Payment
		changed bool
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		switch payment.Status {
		case domain.PaymentFailed:
			result = payment
			return nil
		case domain.PaymentSuccess:
			return fmt.Errorf("%w: payment %d already succeeded", domain.ErrInvalidStateTransition, payment.ID)
		}

		result, err = s.payments.Settle(ctx, payment.ID, domain.PaymentFailed, &reason)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: payment %d is no longer pending", domain.ErrInvalidStateTransition, payment.ID)
		}
		changed = true
		return nil
	})
	if err != nil {
		zap.L().Warn("payment failure not recorded", zap.Int("paymentID", paymentID), zap.Error(err))
		return nil, pg.Wrap(err)
	}

	if changed {
		zap.L().Info("payment failed", zap.Int("paymentID", result.ID), zap.String("reason", reason))
		s.notifier.Notify(domain.Notification{
			Event:     domain.EventPaymentFailed,
			UserID:    result.UserID,
			OrderID:   result.OrderID,
			PaymentID: result.ID,
			Status:    string(result.Status),
			Message:   reason,
		})
	}
	return result, nil
}

func (s *Service) byReference(ctx context.Context, reference string) (*domain.Payment, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrInvalidArgument)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

// ConfirmByReference is the gateway entry point for a successful charge.
func (s *Service) ConfirmByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	payment, err := s.byReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.Confirm(ctx, payment.ID)
}

func (s *Service) FailByReference(ctx context.Context, reference, reason string) (*domain.Payment, error) {
	payment, err := s.byReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return s.Fail(ctx, payment.ID, reason)
}

func (s *Service) ListForOrder(ctx context.Context, userID, orderID int) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	payments, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	return payments, nil
}

// StalePending lists gateway payments that have been PENDING for longer than age.
func (s *Service) StalePending(ctx context.Context, age time.Duration, limit int) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payments, err := s.payments.FindStalePending(ctx, time.Now().Add(-age), limit)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	return payments, nil
}


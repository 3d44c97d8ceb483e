package trackingservice

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/pkg/validate"
	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -source=trackingservice.go -destination=mock_trackingservice.go -package=trackingservice

const (
	// MaxCodeAttempts bounds the retries on a tracking-code collision.
	MaxCodeAttempts = 5
	randomDigits    = validate.TrackingDigits - 1
)

type OrderRepo interface {
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Order, error)
	FindByTrackingCode(ctx context.Context, code string) (*domain.Order, error)
	FindItems(ctx context.Context, orderIDs ...int) ([]domain.OrderItem, error)
	FindEvents(ctx context.Context, orderID int) ([]domain.OrderEvent, error)
	UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error)
	InsertEvent(ctx context.Context, event *domain.OrderEvent) error
}

type AddressRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Address, error)
}

type PaymentRepo interface {
	SettledAmount(ctx context.Context, orderID int) (decimal.Decimal, error)
	FailPendingByOrder(ctx context.Context, orderID int, reason string) (int64, error)
}

type Wallet interface {
	Credit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error)
	Debit(ctx context.Context, userID int, amount decimal.Decimal, reason domain.TransactionReason, corr domain.Correlation) (*domain.WalletTransaction, error)
	OrderShares(ctx context.Context, orderID int) ([]domain.LedgerShare, error)
}

type Notifier interface {
	Notify(n domain.Notification)
}

type Service struct {
	orders    OrderRepo
	addresses AddressRepo
	payments  PaymentRepo
	wallet    Wallet
	notifier  Notifier
	txManager pg.TXManager
	timeout   time.Duration
}

func New(orders OrderRepo, addresses AddressRepo, payments PaymentRepo, wallet Wallet, notifier Notifier, txManager pg.TXManager, timeout time.Duration) *Service {
	return &Service{
		orders:    orders,
		addresses: addresses,
		payments:  payments,
		wallet:    wallet,
		notifier:  notifier,
		txManager: txManager,
		timeout:   timeout,
	}
}

// GenerateCode returns "PH" followed by eleven random digits and a Luhn check digit.
func GenerateCode() (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < randomDigits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	_, full, err := goluhn.Calculate(sb.String())
	if err != nil {
		return "", fmt.Errorf("luhn: %w", err)
	}
	return validate.TrackingPrefix + full, nil
}

// AssignTrackingCode calls insert with fresh codes until one is accepted. Only a collision on
// the tracking code constraint is retried; after MaxCodeAttempts it gives up with ErrConflict.
func (s *Service) AssignTrackingCode(ctx context.Context, insert func(ctx context.Context, code string) error) (string, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		err = insert(ctx, code)
		if err == nil {
			return code, nil
		}
		if !pg.IsUniqueViolation(err, domain.ConstraintTrackingCode) {
			return "", err
		}
		zap.L().Warn("tracking code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}
	return "", fmt.Errorf("%w: no unique tracking code after %d attempts", domain.ErrConflict, MaxCodeAttempts)
}

// Resolve is the unauthenticated lookup. Malformed, unknown and cancelled codes are
// indistinguishable to the caller.
func (s *Service) Resolve(ctx context.Context, code string) (*domain.PublicSnapshot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validate.IsTrackingCode(code) {
		return nil, domain.ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.orders.FindByTrackingCode(ctx, code)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if order == nil || order.Status == domain.OrderCancelled {
		return nil, domain.ErrNotFound
	}

	items, err := s.orders.FindItems(ctx, order.ID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	order.Items = items

	events, err := s.orders.FindEvents(ctx, order.ID)
	if err != nil {
		return nil, pg.Wrap(err)
	}

	address, err := s.addresses.FindByID(ctx, order.AddressID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if address == nil {
		address = &domain.Address{}
	}
	return domain.NewPublicSnapshot(*order, *address, events), nil
}

func authorize(actor domain.Actor, order *domain.Order, to domain.OrderStatus) error {
	switch to {
	case domain.OrderCancelled:
		if actor.Role == domain.RoleAdmin {
			return nil
		}
		if order.UserID == actor.UserID {
			return nil
		}
		return domain.ErrNotFound
	case domain.OrderShipped, domain.OrderDelivered:
		if actor.Role == domain.RoleLogistics || actor.Role == domain.RoleAdmin {
			return nil
		}
	case domain.OrderRefunded:
		if actor.Role == domain.RoleAdmin {
			return nil
		}
	case domain.OrderPaid:
		return fmt.Errorf("%w: an order becomes PAID through payment settlement", domain.ErrInvalidStateTransition)
	}
	return fmt.Errorf("%w: role %s may not move an order to %s", domain.ErrUnauthorized, actor.Role, to)
}

func closesOrder(to domain.OrderStatus) bool {
	return to == domain.OrderCancelled || to == domain.OrderRefunded
}

// Transition moves an order along the status table on behalf of actor. Cancelling or refunding
// an order fails its pending payments and returns any settled money in the same transaction.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, orderID int, to domain.OrderStatus, note, location string) (*domain.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, to)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var updated *domain.Order
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if err := authorize(actor, order, to); err != nil {
			return err
		}
		if err := domain.CheckTransition(order.Status, to); err != nil {
			return err
		}
		if closesOrder(to) {
			if err := s.closeOrder(ctx, order, to); err != nil {
				return err
			}
		}
		updated, err = s.advance(ctx, order.ID, order.Status, to, note, location)
		return err
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("order transition rejected", zap.Int("orderID", orderID), zap.String("to", string(to)), zap.Error(err))
		}
		return nil, pg.Wrap(err)
	}

	zap.L().Info("order status changed", zap.Int("orderID", updated.ID), zap.String("status", string(updated.Status)))
	s.notifier.Notify(domain.Notification{
		Event:        domain.EventOrderStatusChanged,
		UserID:       updated.UserID,
		OrderID:      updated.ID,
		TrackingCode: updated.TrackingCode,
		Status:       string(updated.Status),
		Message:      note,
	})
	return updated, nil
}

// Advance applies a system-driven move such as PENDING -> PAID after settlement. It joins the
// caller's transaction and skips role checks.
func (s *Service) Advance(ctx context.Context, order *domain.Order, to domain.OrderStatus, note string) (*domain.Order, error) {
	if err := domain.CheckTransition(order.Status, to); err != nil {
		return nil, err
	}
	return s.advance(ctx, order.ID, order.Status, to, note, "")
}

func (s *Service) advance(ctx context.Context, orderID int, from, to domain.OrderStatus, note, location string) (*domain.Order, error) {
	updated, err := s.orders.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: order %d is no longer %s", domain.ErrInvalidStateTransition, orderID, from)
	}
	if err := s.orders.InsertEvent(ctx, &domain.OrderEvent{
		OrderID:  orderID,
		Status:   to,
		Note:     note,
		Location: location,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) closeOrder(ctx context.Context, order *domain.Order, to domain.OrderStatus) error {
	reason := "order " + strings.ToLower(string(to))
	failed, err := s.payments.FailPendingByOrder(ctx, order.ID, reason)
	if err != nil {
		return err
	}
	if failed > 0 {
		zap.L().Info("pending payments failed", zap.Int("orderID", order.ID), zap.Int64("count", failed))
	}
	return s.reverse(ctx, order)
}

// reverse takes back every supplier credit of the order and refunds the settled amount to the
// buyer. It is a no-op for an order with no settled money.
func (s *Service) reverse(ctx context.Context, order *domain.Order) error {
	orderID := order.ID
	shares, err := s.wallet.OrderShares(ctx, orderID)
	if err != nil {
		return err
	}
	for _, share := range shares {
		if !share.Amount.IsPositive() {
			continue
		}
		_, err := s.wallet.Debit(ctx, share.UserID, share.Amount, domain.ReasonRefund, domain.Correlation{
			OrderID:        &orderID,
			IdempotencyKey: fmt.Sprintf("refund:order:%d:supplier:%d", orderID, share.UserID),
		})
		if err != nil {
			return fmt.Errorf("reverse supplier %d share: %w", share.UserID, err)
		}
	}

	settled, err := s.payments.SettledAmount(ctx, orderID)
	if err != nil {
		return err
	}
	if !settled.IsPositive() {
		return nil
	}
	_, err = s.wallet.Credit(ctx, order.UserID, settled, domain.ReasonRefund, domain.Correlation{
		OrderID:        &orderID,
		IdempotencyKey: fmt.Sprintf("refund:order:%d:buyer", orderID),
	})
	if err != nil {
		return fmt.Errorf("refund buyer: %w", err)
	}
	return nil
}

package orderservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/pg"
	"go.uber.org/zap"
)

//go:generate mockgen -source=orderservice.go -destination=mock_orderservice.go -package=orderservice

const maxLines = 100

type Repo interface {
	Insert(ctx context.Context, order *domain.Order) error
	InsertEvent(ctx context.Context, event *domain.OrderEvent) error
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int) ([]domain.Order, error)
	FindItems(ctx context.Context, orderIDs ...int) ([]domain.OrderItem, error)
	FindEvents(ctx context.Context, orderID int) ([]domain.OrderEvent, error)
}

type ProductRepo interface {
	FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error)
}

type AddressRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Address, error)
}

type Tracker interface {
	AssignTrackingCode(ctx context.Context, insert func(ctx context.Context, code string) error) (string, error)
	Resolve(ctx context.Context, code string) (*domain.PublicSnapshot, error)
}

type Notifier interface {
	Notify(n domain.Notification)
}

type Service struct {
	repo      Repo
	products  ProductRepo
	addresses AddressRepo
	tracker   Tracker
	notifier  Notifier
	txManager pg.TXManager
	timeout   time.Duration
}

func New(repo Repo, products ProductRepo, addresses AddressRepo, tracker Tracker, notifier Notifier, txManager pg.TXManager, timeout time.Duration) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		addresses: addresses,
		tracker:   tracker,
		notifier:  notifier,
		txManager: txManager,
		timeout:   timeout,
	}
}

// CreateOrder freezes the current product prices into order items and stores the order
// with a fresh tracking code.
func (s *Service) CreateOrder(ctx context.Context, userID, addressID int, lines []domain.LineRequest) (*domain.Order, error) {
	if len(lines) == 0 || len(lines) > maxLines {
		return nil, fmt.Errorf("%w: an order needs between 1 and %d lines", domain.ErrInvalidArgument, maxLines)
	}
	ids := make([]int, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %d must be positive", domain.ErrInvalidArgument, line.ProductID)
		}
		ids = append(ids, line.ProductID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	address, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if address == nil || address.UserID != userID {
		return nil, fmt.Errorf("%w: address %d", domain.ErrNotFound, addressID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	byID := make(map[int]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &domain.Order{
		UserID:    userID,
		AddressID: addressID,
		Status:    domain.OrderPending,
		Items:     make([]domain.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, line.ProductID)
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   product.ID,
			SupplierID:  product.SupplierID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		})
	}
	order.Total = domain.OrderTotal(order.Items)

	_, err = s.tracker.AssignTrackingCode(ctx, func(ctx context.Context, code string) error {
		return s.txManager.Begin(ctx, func(ctx context.Context) error {
			order.TrackingCode = code
			if err := s.repo.Insert(ctx, order); err != nil {
				return err
			}
			return s.repo.InsertEvent(ctx, &domain.OrderEvent{
				OrderID: order.ID,
				Status:  domain.OrderPending,
				Note:    "order placed",
			})
		})
	})
	if err != nil {
		zap.L().Error("can't save order: ", zap.Int("userID", userID), zap.Error(err))
		return nil, pg.Wrap(err)
	}

	zap.L().Info("order created", zap.Int("orderID", order.ID), zap.String("tracking_code", order.TrackingCode))
	s.notifier.Notify(domain.Notification{
		Event:        domain.EventOrderCreated,
		UserID:       userID,
		OrderID:      order.ID,
		TrackingCode: order.TrackingCode,
		Status:       string(order.Status),
		Amount:       order.Total.StringFixed(2),
	})
	return order, nil
}

// ListForUser returns the user's orders newest first, items attached.
func (s *Service) ListForUser(ctx context.Context, userID int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, pg.Wrap(err)
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]int, len(orders))
	index := make(map[int]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}
	items, err := s.repo.FindItems(ctx, ids...)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	for _, item := range items {
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, nil
}

// GetForUser returns the full snapshot of an order the user owns.
func (s *Service) GetForUser(ctx context.Context, userID, orderID int) (*domain.OrderSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if order == nil || order.UserID != userID {
		return nil, domain.ErrNotFound
	}

	if order.Items, err = s.repo.FindItems(ctx, order.ID); err != nil {
		return nil, pg.Wrap(err)
	}
	events, err := s.repo.FindEvents(ctx, order.ID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	address, err := s.addresses.FindByID(ctx, order.AddressID)
	if err != nil {
		return nil, pg.Wrap(err)
	}
	if address == nil {
		return nil, errors.New("order address is missing")
	}
	return &domain.OrderSnapshot{Order: *order, Address: *address, Events: events}, nil
}

func (s *Service) GetByTrackingCode(ctx context.Context, code string) (*domain.PublicSnapshot, error) {
	return s.tracker.Resolve(ctx, code)
}

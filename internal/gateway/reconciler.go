package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/pkg/clients"
	"github.com/GlebRadaev/partshub/pkg/workerpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=reconciler.go -destination=mock_reconciler.go -package=gateway

const (
	maxRetries    = 3
	retryInterval = time.Second * 1
	batchLimit    = 500
	poolSize      = 10
)

var errUnexpectedStatus = errors.New("unexpected status code")

type Payments interface {
	StalePending(ctx context.Context, age time.Duration, limit int) ([]domain.Payment, error)
	ConfirmByReference(ctx context.Context, reference string) (*domain.Payment, error)
	FailByReference(ctx context.Context, reference, reason string) (*domain.Payment, error)
}

// ChargeStatus is what the gateway reports for one charge.
type ChargeStatus struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// Reconciler polls the gateway for payments whose callback never arrived.
type Reconciler struct {
	url        string
	payments   Payments
	client     clients.HTTPClientI
	workerPool workerpool.WorkerPoolI
	interval   time.Duration
	staleAfter time.Duration
	limit      int
	retryDelay time.Duration
	inFlight   sync.Map
}

func New(cfg *config.Config, payments Payments, client clients.HTTPClientI) *Reconciler {
	return &Reconciler{
		url:        cfg.GatewayAddress,
		payments:   payments,
		client:     client,
		workerPool: workerpool.New("reconcile", poolSize),
		interval:   cfg.ReconcileInterval,
		staleAfter: cfg.ReconcileInterval,
		limit:      batchLimit,
		retryDelay: retryInterval,
	}
}

// Start blocks until ctx is done and every queued reconciliation has finished.
func (r *Reconciler) Start(ctx context.Context) {
	zap.L().Info("Payment reconciler started", zap.Duration("interval", r.interval))
	r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping reconciler")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) {
	payments, err := r.payments.StalePending(ctx, r.staleAfter, r.limit)
	if err != nil {
		zap.L().Error("Failed to fetch pending payments", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, payment := range payments {
		payment := payment
		if payment.Reference == nil {
			continue
		}
		if _, loaded := r.inFlight.LoadOrStore(payment.ID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := r.workerPool.AddTask(ctx, func() error {
				defer r.inFlight.Delete(payment.ID)
				return r.handlePayment(ctx, payment)
			})
			if err != nil {
				r.inFlight.Delete(payment.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error reconciling payments", zap.Error(err))
	}
}

func (r *Reconciler) handlePayment(ctx context.Context, payment domain.Payment) error {
	reference := *payment.Reference
	endpoint := r.url + "/api/payments/" + url.PathEscape(reference)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		statusCode, respBody, respHeaders, err := r.client.Get(ctx, endpoint, nil)
		if err != nil {
			if attempt < maxRetries {
				if err := sleep(ctx, r.retryDelay*time.Duration(attempt)); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("failed to reconcile payment %d after %d retries: %w", payment.ID, maxRetries, err)
		}

		switch statusCode {
		case http.StatusOK:
			return r.apply(ctx, payment, respBody)
		case http.StatusTooManyRequests:
			wait := retryAfter(respHeaders, r.retryDelay*time.Duration(attempt))
			zap.L().Warn("Rate limit detected, retrying",
				zap.Int("paymentID", payment.ID),
				zap.Int("attempt", attempt),
				zap.Duration("retryAfter", wait),
			)
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		case http.StatusNotFound:
			zap.L().Warn("Payment unknown to gateway", zap.Int("paymentID", payment.ID), zap.String("reference", reference))
			return nil
		default:
			zap.L().Error("Unexpected status code", zap.Int("status", statusCode), zap.Int("paymentID", payment.ID))
			return errUnexpectedStatus
		}
	}
	return fmt.Errorf("gateway kept rate limiting payment %d", payment.ID)
}

func (r *Reconciler) apply(ctx context.Context, payment domain.Payment, respBody []byte) error {
	var charge ChargeStatus
	if err := json.Unmarshal(respBody, &charge); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}
	if charge.Reference != *payment.Reference {
		return fmt.Errorf("reference mismatch: expected %s, got %s", *payment.Reference, charge.Reference)
	}

	var err error
	switch charge.Status {
	case string(domain.PaymentSuccess):
		_, err = r.payments.ConfirmByReference(ctx, charge.Reference)
	case string(domain.PaymentFailed):
		reason := charge.Reason
		if reason == "" {
			reason = DefaultFailReason
		}
		_, err = r.payments.FailByReference(ctx, charge.Reference, reason)
	case string(domain.PaymentPending):
		zap.L().Info("Payment still pending at gateway", zap.Int("paymentID", payment.ID))
		return nil
	default:
		zap.L().Warn("Unrecognized status received", zap.Int("paymentID", payment.ID), zap.String("status", charge.Status))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to settle payment %d: %w", payment.ID, err)
	}
	return nil
}

func retryAfter(headers http.Header, fallback time.Duration) time.Duration {
	if headers == nil {
		return fallback
	}
	if seconds, err := strconv.Atoi(headers.Get("Retry-After")); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

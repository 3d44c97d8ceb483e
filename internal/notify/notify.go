package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/pkg/clients"
	"github.com/GlebRadaev/partshub/pkg/workerpool"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notify.go -destination=mock_notify.go -package=notify

const (
	poolSize    = 4
	sendTimeout = 10 * time.Second
)

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

// Dispatcher delivers notifications in the background. Delivery is best effort: a full
// queue or a failed send is logged and dropped.
type Dispatcher struct {
	sender Sender
	pool   workerpool.WorkerPoolI
}

func New(sender Sender, pool workerpool.WorkerPoolI) *Dispatcher {
	return &Dispatcher{sender: sender, pool: pool}
}

// NewDispatcher picks the webhook sender when url is set and the log sender otherwise.
func NewDispatcher(url string, client clients.HTTPClientI) *Dispatcher {
	var sender Sender = LogSender{}
	if url != "" {
		sender = NewHTTPSender(url, client)
	}
	return New(sender, workerpool.New("notify", poolSize))
}

func (d *Dispatcher) Notify(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := d.pool.AddTask(ctx, func() error {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.sender.Send(sendCtx, n); err != nil {
			return fmt.Errorf("notify %s for user %d: %w", n.Event, n.UserID, err)
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("notification dropped", zap.String("event", string(n.Event)), zap.Int("userID", n.UserID), zap.Error(err))
	}
}

func (d *Dispatcher) Close() {
	d.pool.Close()
}

type LogSender struct{}

func (LogSender) Send(_ context.Context, n domain.Notification) error {
	zap.L().Info("notification",
		zap.String("event", string(n.Event)),
		zap.Int("userID", n.UserID),
		zap.Int("orderID", n.OrderID),
		zap.String("status", n.Status),
	)
	return nil
}

type HTTPSender struct {
	url    string
	client clients.HTTPClientI
}

func NewHTTPSender(url string, client clients.HTTPClientI) *HTTPSender {
	return &HTTPSender{url: url, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	status, _, err := s.client.Post(ctx, s.url, http.Header{"Content-Type": []string{"application/json"}}, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook answered %d", status)
	}
	return nil
}

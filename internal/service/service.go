package service

import (
	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/gateway"
	"github.com/GlebRadaev/partshub/internal/handlers/auth"
	"github.com/GlebRadaev/partshub/internal/handlers/catalog"
	"github.com/GlebRadaev/partshub/internal/handlers/orders"
	"github.com/GlebRadaev/partshub/internal/handlers/payments"
	"github.com/GlebRadaev/partshub/internal/handlers/wallet"
	"github.com/GlebRadaev/partshub/internal/pg"

	pkgauth "github.com/GlebRadaev/partshub/pkg/auth"

	"github.com/GlebRadaev/partshub/internal/repo"
	addressservice "github.com/GlebRadaev/partshub/internal/service/addressservice"
	authservice "github.com/GlebRadaev/partshub/internal/service/authservice"
	catalogservice "github.com/GlebRadaev/partshub/internal/service/catalogservice"
	orderservice "github.com/GlebRadaev/partshub/internal/service/orderservice"
	paymentservice "github.com/GlebRadaev/partshub/internal/service/paymentservice"
	trackingservice "github.com/GlebRadaev/partshub/internal/service/trackingservice"
	walletservice "github.com/GlebRadaev/partshub/internal/service/walletservice"
)

type Notifier interface {
	Notify(n domain.Notification)
}

type Services struct {
	AuthService     auth.Service
	ProductService  catalog.ProductService
	AddressService  catalog.AddressService
	OrderService    orders.Service
	TrackingService orders.Tracker
	PaymentService  payments.Service
	WalletService   wallet.Service

	// Settlement is the payment service as seen by the gateway reconciler.
	Settlement gateway.Payments
	JWTService pkgauth.JWTServiceInterface
}

func New(cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, notifier Notifier) *Services {
	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)
	hashService := pkgauth.NewHashService(cfg.BcryptCost)

	walletService := walletservice.New(cfg, repo.WalletRepo, txManager)
	trackingService := trackingservice.New(repo.OrderRepo, repo.AddressRepo, repo.PaymentRepo, walletService, notifier, txManager, cfg.DBTimeout)
	paymentService := paymentservice.New(cfg, repo.PaymentRepo, repo.OrderRepo, walletService, trackingService, notifier, txManager)
	orderService := orderservice.New(repo.OrderRepo, repo.ProductRepo, repo.AddressRepo, trackingService, notifier, txManager, cfg.DBTimeout)

	return &Services{
		AuthService:     authservice.New(repo.UserRepo, hashService, jwtService),
		ProductService:  catalogservice.New(repo.ProductRepo, cfg.DBTimeout),
		AddressService:  addressservice.New(repo.AddressRepo, cfg.DBTimeout),
		OrderService:    orderService,
		TrackingService: trackingService,
		PaymentService:  paymentService,
		WalletService:   walletService,
		Settlement:      paymentService,
		JWTService:      jwtService,
	}
}

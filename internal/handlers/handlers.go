package handlers

import (
	"net/http"
	"time"

	_ "github.com/GlebRadaev/partshub/docs"
	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/domain"
	authhandlers "github.com/GlebRadaev/partshub/internal/handlers/auth"
	cataloghandlers "github.com/GlebRadaev/partshub/internal/handlers/catalog"
	ordershandlers "github.com/GlebRadaev/partshub/internal/handlers/orders"
	paymentshandlers "github.com/GlebRadaev/partshub/internal/handlers/payments"
	wallethandlers "github.com/GlebRadaev/partshub/internal/handlers/wallet"
	"github.com/GlebRadaev/partshub/internal/service"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=handlers

const requestTimeout = 30 * time.Second

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type CatalogHandler interface {
	ListProducts(w http.ResponseWriter, r *http.Request)
	CreateProduct(w http.ResponseWriter, r *http.Request)
	UpdatePrice(w http.ResponseWriter, r *http.Request)
	CreateAddress(w http.ResponseWriter, r *http.Request)
	ListAddresses(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	CreateOrder(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
	TransitionOrder(w http.ResponseWriter, r *http.Request)
	Track(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	InitiatePayment(w http.ResponseWriter, r *http.Request)
	ListPayments(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
	ConfirmPayment(w http.ResponseWriter, r *http.Request)
	FailPayment(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	Payout(w http.ResponseWriter, r *http.Request)
	Adjust(w http.ResponseWriter, r *http.Request)
}

type Limiter interface {
	Middleware(next http.Handler) http.Handler
}

type Handlers struct {
	AuthHandler    AuthHandler
	CatalogHandler CatalogHandler
	OrderHandler   OrderHandler
	PaymentHandler PaymentHandler
	WalletHandler  WalletHandler

	JWTService   auth.JWTServiceInterface
	TrackLimiter Limiter
}

func New(cfg *config.Config, s *service.Services, limiter Limiter) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.AuthService),
		CatalogHandler: cataloghandlers.New(s.ProductService, s.AddressService),
		OrderHandler:   ordershandlers.New(s.OrderService, s.TrackingService),
		PaymentHandler: paymentshandlers.New(s.PaymentService, cfg.GatewaySecret),
		WalletHandler:  wallethandlers.New(s.WalletService),
		JWTService:     s.JWTService,
		TrackLimiter:   limiter,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(requestTimeout),
		render.SetContentType(render.ContentTypeJSON),
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.AuthHandler.Register)
		r.Post("/user/login", h.AuthHandler.Login)
		r.Get("/products", h.CatalogHandler.ListProducts)
		r.Post("/gateway/callback", h.PaymentHandler.Callback)
		r.With(h.TrackLimiter.Middleware).Get("/track/{code}", h.OrderHandler.Track)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.JWTService))

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(domain.RoleSupplier, domain.RoleAdmin))
				r.Post("/products", h.CatalogHandler.CreateProduct)
				r.Put("/products/{id}/price", h.CatalogHandler.UpdatePrice)
			})
			r.Route("/addresses", func(r chi.Router) {
				r.Post("/", h.CatalogHandler.CreateAddress)
				r.Get("/", h.CatalogHandler.ListAddresses)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.OrderHandler.CreateOrder)
				r.Get("/", h.OrderHandler.GetOrders)
				r.Get("/{id}", h.OrderHandler.GetOrder)
				r.Post("/{id}/status", h.OrderHandler.TransitionOrder)
				r.Post("/{id}/payments", h.PaymentHandler.InitiatePayment)
				r.Get("/{id}/payments", h.PaymentHandler.ListPayments)
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Get("/transactions", h.WalletHandler.GetTransactions)
				r.Post("/payout", h.WalletHandler.Payout)
			})
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(domain.RoleAdmin))
				r.Post("/payments/{paymentID}/confirm", h.PaymentHandler.ConfirmPayment)
				r.Post("/payments/{paymentID}/fail", h.PaymentHandler.FailPayment)
				r.Post("/wallets/{userID}/adjust", h.WalletHandler.Adjust)
			})
		})
	})

	return r
}

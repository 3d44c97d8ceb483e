package repo

import (
	"github.com/GlebRadaev/partshub/internal/pg"
	addressrepo "github.com/GlebRadaev/partshub/internal/repo/address-repo"
	orderrepo "github.com/GlebRadaev/partshub/internal/repo/order-repo"
	paymentrepo "github.com/GlebRadaev/partshub/internal/repo/payment-repo"
	productrepo "github.com/GlebRadaev/partshub/internal/repo/product-repo"
	userrepo "github.com/GlebRadaev/partshub/internal/repo/user-repo"
	walletrepo "github.com/GlebRadaev/partshub/internal/repo/wallet-repo"
)

// Repositories share one connection. Queries join the transaction carried by ctx when there is one.
type Repositories struct {
	UserRepo    *userrepo.Repository
	ProductRepo *productrepo.Repository
	AddressRepo *addressrepo.Repository
	OrderRepo   *orderrepo.Repository
	PaymentRepo *paymentrepo.Repository
	WalletRepo  *walletrepo.Repository
}

func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:    userrepo.New(conn),
		ProductRepo: productrepo.New(conn),
		AddressRepo: addressrepo.New(conn),
		OrderRepo:   orderrepo.New(conn),
		PaymentRepo: paymentrepo.New(conn),
		WalletRepo:  walletrepo.New(conn),
	}
}

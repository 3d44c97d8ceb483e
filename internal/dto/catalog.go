package dto

import (
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateProductRequestDTO struct {
	Name  string          `json:"name" validate:"required,max=200" example:"Front brake pad set"`
	Price decimal.Decimal `json:"price" validate:"money" swaggertype:"string" example:"49.90"`
}

type UpdatePriceRequestDTO struct {
	Price decimal.Decimal `json:"price" validate:"money" swaggertype:"string" example:"52.00"`
}

type ProductResponseDTO struct {
	ID         int    `json:"id" example:"3"`
	SupplierID int    `json:"supplier_id" example:"5"`
	Name       string `json:"name" example:"Front brake pad set"`
	Price      string `json:"price" example:"49.90"`
	CreatedAt  string `json:"created_at" example:"2024-05-01T10:00:00Z"`
}

func NewProductResponse(p domain.Product) ProductResponseDTO {
	return ProductResponseDTO{
		ID:         p.ID,
		SupplierID: p.SupplierID,
		Name:       p.Name,
		Price:      p.Price.StringFixed(2),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

type CreateAddressRequestDTO struct {
	Line1      string `json:"line1" validate:"required,max=200" example:"12 Allen Avenue"`
	City       string `json:"city" validate:"required,max=100" example:"Lagos"`
	PostalCode string `json:"postal_code" validate:"max=20" example:"100001"`
	Country    string `json:"country" validate:"required,len=2" example:"NG"`
}

type AddressResponseDTO struct {
	ID         int    `json:"id" example:"2"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

func NewAddressResponse(a domain.Address) AddressResponseDTO {
	return AddressResponseDTO{ID: a.ID, Line1: a.Line1, City: a.City, PostalCode: a.PostalCode, Country: a.Country}
}

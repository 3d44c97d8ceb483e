package dto

import (
	"time"

	"github.com/GlebRadaev/partshub/internal/domain"
)

type OrderLineDTO struct {
	ProductID int `json:"product_id" validate:"required,gt=0" example:"3"`
	Quantity  int `json:"quantity" validate:"required,gt=0,lte=1000" example:"2"`
}

type CreateOrderRequestDTO struct {
	AddressID int            `json:"address_id" validate:"required,gt=0" example:"2"`
	Items     []OrderLineDTO `json:"items" validate:"required,min=1,max=100,dive"`
}

type OrderItemDTO struct {
	ProductID  int    `json:"product_id" example:"3"`
	SupplierID int    `json:"supplier_id" example:"5"`
	Name       string `json:"name" example:"Front brake pad set"`
	Quantity   int    `json:"quantity" example:"2"`
	UnitPrice  string `json:"unit_price" example:"49.90"`
}

type OrderResponseDTO struct {
	ID           int            `json:"id" example:"7"`
	TrackingCode string         `json:"tracking_code" example:"PH000000000018"`
	Status       string         `json:"status" example:"PENDING"`
	Total        string         `json:"total" example:"99.80"`
	AddressID    int            `json:"address_id" example:"2"`
	Items        []OrderItemDTO `json:"items"`
	CreatedAt    string         `json:"created_at" example:"2024-05-01T10:00:00Z"`
	UpdatedAt    string         `json:"updated_at" example:"2024-05-01T10:00:00Z"`
}

func NewOrderResponse(o domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:  item.ProductID,
			SupplierID: item.SupplierID,
			Name:       item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice.StringFixed(2),
		})
	}
	return OrderResponseDTO{
		ID:           o.ID,
		TrackingCode: o.TrackingCode,
		Status:       string(o.Status),
		Total:        o.Total.StringFixed(2),
		AddressID:    o.AddressID,
		Items:        items,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    o.UpdatedAt.Format(time.RFC3339),
	}
}

type OrderEventDTO struct {
	Status    string `json:"status" example:"SHIPPED"`
	Note      string `json:"note,omitempty"`
	Location  string `json:"location,omitempty" example:"Lagos hub"`
	CreatedAt string `json:"created_at" example:"2024-05-02T08:30:00Z"`
}

type OrderDetailsResponseDTO struct {
	OrderResponseDTO
	Address AddressResponseDTO `json:"address"`
	Events  []OrderEventDTO    `json:"events"`
}

func NewOrderDetailsResponse(s domain.OrderSnapshot) OrderDetailsResponseDTO {
	events := make([]OrderEventDTO, 0, len(s.Events))
	for _, e := range s.Events {
		events = append(events, OrderEventDTO{Status: string(e.Status), Note: e.Note, Location: e.Location, CreatedAt: e.CreatedAt.Format(time.RFC3339)})
	}
	return OrderDetailsResponseDTO{
		OrderResponseDTO: NewOrderResponse(s.Order),
		Address:          NewAddressResponse(s.Address),
		Events:           events,
	}
}

type TransitionRequestDTO struct {
	Status   string `json:"status" validate:"required,oneof=PAID SHIPPED DELIVERED CANCELLED REFUNDED" example:"SHIPPED"`
	Note     string `json:"note,omitempty" validate:"max=500" example:"Handed to courier"`
	Location string `json:"location,omitempty" validate:"max=200" example:"Lagos hub"`
}

type TrackingItemDTO struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// TrackingResponseDTO is the unauthenticated view and carries no internal identifiers.
type TrackingResponseDTO struct {
	TrackingCode string            `json:"tracking_code" example:"PH000000000018"`
	Status       string            `json:"status" example:"SHIPPED"`
	Total        string            `json:"total" example:"99.80"`
	Items        []TrackingItemDTO `json:"items"`
	City         string            `json:"city" example:"Lagos"`
	Country      string            `json:"country" example:"NG"`
	Events       []OrderEventDTO   `json:"events"`
	UpdatedAt    string            `json:"updated_at"`
}

func NewTrackingResponse(s domain.PublicSnapshot) TrackingResponseDTO {
	items := make([]TrackingItemDTO, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, TrackingItemDTO{Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice.StringFixed(2)})
	}
	events := make([]OrderEventDTO, 0, len(s.Events))
	for _, e := range s.Events {
		events = append(events, OrderEventDTO{Status: string(e.Status), Note: e.Note, Location: e.Location, CreatedAt: e.CreatedAt.Format(time.RFC3339)})
	}
	return TrackingResponseDTO{
		TrackingCode: s.TrackingCode,
		Status:       string(s.Status),
		Total:        s.Total.StringFixed(2),
		Items:        items,
		City:         s.City,
		Country:      s.Country,
		Events:       events,
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

package orders

import (
	"context"
	"net/http"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/GlebRadaev/partshub/pkg/utils"
	"github.com/go-chi/chi/v5"
)

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

type Service interface {
	CreateOrder(ctx context.Context, userID, addressID int, lines []domain.LineRequest) (*domain.Order, error)
	ListForUser(ctx context.Context, userID int) ([]domain.Order, error)
	GetForUser(ctx context.Context, userID, orderID int) (*domain.OrderSnapshot, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.PublicSnapshot, error)
}

type Tracker interface {
	Transition(ctx context.Context, actor domain.Actor, orderID int, to domain.OrderStatus, note, location string) (*domain.Order, error)
}

type OrderHandler struct {
	orderService Service
	tracker      Tracker
}

func New(orderService Service, tracker Tracker) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		tracker:      tracker,
	}
}

// CreateOrder godoc
//
//	@Summary		Place an order
//	@Description	Freezes current catalog prices into the order and assigns a tracking code.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.CreateOrderRequestDTO	true	"Order lines and delivery address"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid request body"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Unknown product or address"
//	@Failure		422	{object}	utils.Response	"Invalid order lines"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	var req dto.CreateOrderRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	lines := make([]domain.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orderService.CreateOrder(r.Context(), userID, req.AddressID, lines)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewOrderResponse(*order))
}

// GetOrders godoc
//
//	@Summary		Get own orders
//	@Description	Newest first.
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Success		204	{object}	utils.Response	"No orders found"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	orders, err := h.orderService.ListForUser(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	if len(orders) == 0 {
		utils.RespondWithJSON(w, http.StatusNoContent, nil)
		return
	}

	resp := make([]dto.OrderResponseDTO, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, dto.NewOrderResponse(order))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// GetOrder godoc
//
//	@Summary	Get one order with its address and status history
//	@Tags		Orders
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Order id"
//	@Success	200	{object}	dto.OrderDetailsResponseDTO
//	@Failure	404	{object}	utils.Response	"Order not found"
//	@Router		/api/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())
	orderID, ok := utils.PathID(w, r, "id")
	if !ok {
		return
	}

	snapshot, err := h.orderService.GetForUser(r.Context(), userID, orderID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderDetailsResponse(*snapshot))
}

// TransitionOrder godoc
//
//	@Summary		Move an order along its lifecycle
//	@Description	Owners and admins cancel, logistics ships and delivers, admins refund.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int							true	"Order id"
//	@Param			request	body		dto.TransitionRequestDTO	true	"Target status"
//	@Success		200		{object}	dto.OrderResponseDTO
//	@Failure		401		{object}	utils.Response	"Role may not perform this transition"
//	@Failure		404		{object}	utils.Response	"Order not found"
//	@Failure		409		{object}	utils.Response	"Transition not allowed from current status"
//	@Router			/api/orders/{id}/status [post]
func (h *OrderHandler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	userID, role := auth.Caller(r.Context())
	orderID, ok := utils.PathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}

	order, err := h.tracker.Transition(r.Context(), domain.Actor{UserID: userID, Role: role}, orderID,
		domain.OrderStatus(req.Status), req.Note, req.Location)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewOrderResponse(*order))
}

// Track godoc
//
//	@Summary		Public order tracking
//	@Description	Unauthenticated and rate limited. Unknown, malformed and cancelled codes all answer 404.
//	@Tags			Tracking
//	@Produce		json
//	@Param			code	path		string	true	"Tracking code"
//	@Success		200		{object}	dto.TrackingResponseDTO
//	@Failure		404		{object}	utils.Response	"Not found"
//	@Failure		429		{object}	utils.Response	"Too many requests"
//	@Router			/api/track/{code} [get]
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.orderService.GetByTrackingCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		utils.RespondWithDomainError(w, err, true)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewTrackingResponse(*snapshot))
}

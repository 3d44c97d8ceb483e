package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/GlebRadaev/partshub/internal/domain"
	"github.com/GlebRadaev/partshub/internal/dto"
	"github.com/GlebRadaev/partshub/pkg/auth"
	"github.com/GlebRadaev/partshub/pkg/utils"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=catalog.go -destination=mock_catalog.go -package=catalog

type ProductService interface {
	CreateProduct(ctx context.Context, actor domain.Actor, name string, price decimal.Decimal) (*domain.Product, error)
	UpdatePrice(ctx context.Context, actor domain.Actor, productID int, price decimal.Decimal) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
}

type AddressService interface {
	Create(ctx context.Context, userID int, a domain.Address) (*domain.Address, error)
	List(ctx context.Context, userID int) ([]domain.Address, error)
}

type CatalogHandler struct {
	products  ProductService
	addresses AddressService
}

func New(products ProductService, addresses AddressService) *CatalogHandler {
	return &CatalogHandler{
		products:  products,
		addresses: addresses,
	}
}

func actorFrom(r *http.Request) domain.Actor {
	userID, role := auth.Caller(r.Context())
	return domain.Actor{UserID: userID, Role: role}
}

// ListProducts godoc
//
//	@Summary	List catalog products
//	@Tags		Catalog
//	@Security	BearerAuth
//	@Produce	json
//	@Param		limit	query	int	false	"Page size, 100 at most"
//	@Param		offset	query	int	false	"Offset"
//	@Success	200		{array}	dto.ProductResponseDTO
//	@Failure	401		{object}	utils.Response	"User not authorized"
//	@Router		/api/products [get]
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	products, err := h.products.List(r.Context(), limit, offset)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	resp := make([]dto.ProductResponseDTO, 0, len(products))
	for _, p := range products {
		resp = append(resp, dto.NewProductResponse(p))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// CreateProduct godoc
//
//	@Summary		Add a product
//	@Description	Suppliers list parts under their own id.
//	@Tags			Catalog
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateProductRequestDTO	true	"Product"
//	@Success		201		{object}	dto.ProductResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Only suppliers and admins"
//	@Failure		422		{object}	utils.Response	"Invalid price"
//	@Router			/api/products [post]
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	product, err := h.products.CreateProduct(r.Context(), actorFrom(r), req.Name, req.Price)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewProductResponse(*product))
}

// UpdatePrice godoc
//
//	@Summary		Change a product price
//	@Description	Existing orders keep the price frozen at purchase time.
//	@Tags			Catalog
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Product id"
//	@Param			request	body		dto.UpdatePriceRequestDTO	true	"New price"
//	@Success		200		{object}	dto.ProductResponseDTO
//	@Failure		404		{object}	utils.Response	"Product not found"
//	@Failure		422		{object}	utils.Response	"Invalid price"
//	@Router			/api/products/{id}/price [put]
func (h *CatalogHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.PathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdatePriceRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	product, err := h.products.UpdatePrice(r.Context(), actorFrom(r), id, req.Price)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.NewProductResponse(*product))
}

// CreateAddress godoc
//
//	@Summary	Save a delivery address
//	@Tags		Addresses
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dto.CreateAddressRequestDTO	true	"Address"
//	@Success	201		{object}	dto.AddressResponseDTO
//	@Failure	400		{object}	utils.Response	"Invalid request body"
//	@Failure	422		{object}	utils.Response	"Invalid address"
//	@Router		/api/addresses [post]
func (h *CatalogHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	var req dto.CreateAddressRequestDTO
	if !utils.BindJSON(w, r, &req) {
		return
	}
	address, err := h.addresses.Create(r.Context(), userID, domain.Address{
		Line1:      req.Line1,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.NewAddressResponse(*address))
}

// ListAddresses godoc
//
//	@Summary	List own addresses
//	@Tags		Addresses
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}		dto.AddressResponseDTO
//	@Success	204	{string}	string	"No addresses"
//	@Router		/api/addresses [get]
func (h *CatalogHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.Caller(r.Context())

	addresses, err := h.addresses.List(r.Context(), userID)
	if err != nil {
		utils.RespondWithDomainError(w, err, false)
		return
	}
	if len(addresses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	resp := make([]dto.AddressResponseDTO, 0, len(addresses))
	for _, a := range addresses {
		resp = append(resp, dto.NewAddressResponse(a))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

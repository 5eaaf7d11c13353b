// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/cart"
	"github.com/your-org/storefront-membership/internal/infrastructure/commerce"
	"github.com/your-org/storefront-membership/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-membership/internal/pkg/i18n"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	log         logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(svc *cart.Service, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		cartService: svc,
		log:         log,
	}
}

// CreateCartRequest is the body of POST /cart
type CreateCartRequest struct {
	Lines []cart.LineInput `json:"lines" binding:"dive"`
}

// UpdateLineRequest is the body of PUT /cart/:id/lines/:lineId. A quantity
// of zero removes the line, so it must be sent explicitly.
type UpdateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

type cartPayload struct {
	Cart          *cart.EnhancedCart `json:"cart"`
	BenefitsError string             `json:"benefitsError,omitempty"`
}

type checkoutPayload struct {
	cartPayload
	CheckoutURL string               `json:"checkoutUrl"`
	Summary     cart.BenefitsSummary `json:"summary"`
}

// CreateCart handles POST /cart
func (h *CartHandler) CreateCart(c *gin.Context) {
	var req CreateCartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request data")
			return
		}
	}

	result := h.cartService.Create(c.Request.Context(), customerID(c), req.Lines)
	h.respondResult(c, http.StatusCreated, result)
}

// GetCart handles GET /cart/:id
func (h *CartHandler) GetCart(c *gin.Context) {
	result := h.cartService.Get(c.Request.Context(), c.Param("id"), customerID(c))
	h.respondResult(c, http.StatusOK, result)
}

// AddLine handles POST /cart/:id/lines
func (h *CartHandler) AddLine(c *gin.Context) {
	var line cart.LineInput
	if err := c.ShouldBindJSON(&line); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request data")
		return
	}

	result := h.cartService.AddItem(c.Request.Context(), c.Param("id"), customerID(c), line)
	h.respondResult(c, http.StatusOK, result)
}

// UpdateLine handles PUT /cart/:id/lines/:lineId
func (h *CartHandler) UpdateLine(c *gin.Context) {
	var req UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondError(c, http.StatusBadRequest, "Invalid request data")
		return
	}

	update := cart.LineUpdate{ID: c.Param("lineId"), Quantity: *req.Quantity}
	result := h.cartService.UpdateItem(c.Request.Context(), c.Param("id"), customerID(c), update)
	h.respondResult(c, http.StatusOK, result)
}

// RemoveLine handles DELETE /cart/:id/lines/:lineId
func (h *CartHandler) RemoveLine(c *gin.Context) {
	result := h.cartService.RemoveItem(c.Request.Context(), c.Param("id"), customerID(c), c.Param("lineId"))
	h.respondResult(c, http.StatusOK, result)
}

// GetBenefits handles GET /cart/:id/benefits
func (h *CartHandler) GetBenefits(c *gin.Context) {
	summary, result := h.cartService.Summary(c.Request.Context(), c.Param("id"), customerID(c), locale(c))
	if !result.Success {
		h.respondResult(c, http.StatusOK, result)
		return
	}
	respondSuccess(c, http.StatusOK, summary)
}

// ValidateMembership handles GET /cart/:id/membership
func (h *CartHandler) ValidateMembership(c *gin.Context) {
	id := customerID(c)
	if id == "" {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	validation, err := h.cartService.ValidateMembership(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		h.respondFailure(c, err, err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, validation)
}

// Checkout handles POST /cart/:id/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	result := h.cartService.PrepareCheckout(c.Request.Context(), c.Param("id"), customerID(c), locale(c))
	if !result.Success {
		h.respondResult(c, http.StatusOK, result.ActionResult)
		return
	}

	respondSuccess(c, http.StatusOK, checkoutPayload{
		cartPayload: cartPayload{Cart: result.Cart, BenefitsError: result.BenefitsError},
		CheckoutURL: result.CheckoutURL,
		Summary:     result.Summary,
	})
}

func (h *CartHandler) respondResult(c *gin.Context, status int, result cart.ActionResult) {
	if !result.Success {
		h.respondFailure(c, result.Err, result.Error)
		return
	}
	respondSuccess(c, status, cartPayload{Cart: result.Cart, BenefitsError: result.BenefitsError})
}

func (h *CartHandler) respondFailure(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, cart.ErrInvalidCartRequest):
		respondError(c, http.StatusBadRequest, message)
	case errors.Is(err, commerce.ErrCartNotFound):
		respondError(c, http.StatusNotFound, message)
	case errors.Is(err, commerce.ErrNotConfigured):
		respondError(c, http.StatusServiceUnavailable, message)
	default:
		var userErrs commerce.UserErrors
		if errors.As(err, &userErrs) {
			respondError(c, http.StatusUnprocessableEntity, message)
			return
		}
		respondError(c, http.StatusBadGateway, message)
	}
}

func customerID(c *gin.Context) string {
	id, _ := middleware.GetCustomerIDFromContext(c)
	return id
}

func locale(c *gin.Context) string {
	return i18n.Match(c.Query("locale"), c.GetHeader("Accept-Language"))
}

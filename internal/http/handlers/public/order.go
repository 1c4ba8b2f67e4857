package public

import (
	"strings"

	"github.com/pinmart/pinmart/internal/http/response"
	"github.com/pinmart/pinmart/internal/service"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	CardType   string `json:"card_type" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	BuyerEmail string `json:"buyer_email" binding:"required"`
}

// CreateOrder reserves stock and opens a gateway checkout.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid checkout input")
		return
	}

	result, err := h.OrderService.Checkout(c.Request.Context(), service.CheckoutInput{
		CardType:   req.CardType,
		Quantity:   req.Quantity,
		BuyerEmail: req.BuyerEmail,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	response.Success(c, result)
}

// GetOrderByReference returns the buyer view of an order. PINs are present
// only once the order is completed.
func (h *Handler) GetOrderByReference(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		response.BadRequest(c, "reference is required")
		return
	}
	view, err := h.OrderService.GetOrderByReference(reference)
	if err != nil {
		respondOrderFetchError(c, err)
		return
	}
	response.Success(c, view)
}

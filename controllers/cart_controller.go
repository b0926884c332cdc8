package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"cart-gateway/models"
	"cart-gateway/services"
)

// CartController proxies the browser's cart operations to the
// authoritative engine. Its whole job is session fidelity: the inbound
// Cookie header goes upstream verbatim and every upstream Set-Cookie
// header comes back to the browser individually, so a session
// assignment or rotation is never lost or merged away.
type CartController struct {
	client *services.CartClient
}

func NewCartController(client *services.CartClient) *CartController {
	return &CartController{client: client}
}

// @Summary Get cart
// @Description Get the session's cart from the authoritative engine
// @Tags Cart
// @Produce json
// @Success 200 {object} models.Cart
// @Failure 500 {object} models.ErrorResponse
// @Router /cart [get]
func (ctrl *CartController) GetCart(c *gin.Context) {
	cart, header, err := ctrl.client.FetchCart(c.Request.Context(), c.GetHeader("Cookie"))
	if err != nil {
		ctrl.respondError(c, err, "failed to fetch cart")
		return
	}
	replaySetCookies(c, header)
	c.JSON(http.StatusOK, cart)
}

// @Summary Add item
// @Description Add a product to the cart; re-adding a product merges into its existing line
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.AddItemRequest true "Product and quantity"
// @Success 200 {object} models.Cart
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /cart/add [post]
func (ctrl *CartController) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("product and a positive quantity are required"))
		return
	}

	cart, header, err := ctrl.client.AddItem(c.Request.Context(), req.Product, req.Quantity, c.GetHeader("Cookie"))
	if err != nil {
		ctrl.respondError(c, err, "failed to add item to cart")
		return
	}
	replaySetCookies(c, header)
	c.JSON(http.StatusOK, cart)
}

// @Summary Update line quantity
// @Description Set a cart line's quantity; zero removes the line
// @Tags Cart
// @Accept json
// @Produce json
// @Param line_id path string true "Line identity"
// @Param request body models.UpdateLineRequest true "New quantity"
// @Success 200 {object} models.Cart
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /cart/update/{line_id} [put]
func (ctrl *CartController) UpdateLine(c *gin.Context) {
	var req models.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("quantity must be a number"))
		return
	}
	if *req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("quantity must be zero or greater"))
		return
	}

	cart, header, err := ctrl.client.UpdateLine(c.Request.Context(), c.Param("line_id"), *req.Quantity, c.GetHeader("Cookie"))
	if err != nil {
		ctrl.respondError(c, err, "failed to update cart item")
		return
	}
	replaySetCookies(c, header)
	c.JSON(http.StatusOK, cart)
}

// @Summary Remove line
// @Description Remove a cart line; removing an absent line returns the cart unchanged
// @Tags Cart
// @Produce json
// @Param line_id path string true "Line identity"
// @Success 200 {object} models.Cart
// @Failure 500 {object} models.ErrorResponse
// @Router /cart/remove/{line_id} [delete]
func (ctrl *CartController) RemoveLine(c *gin.Context) {
	cart, header, err := ctrl.client.RemoveLine(c.Request.Context(), c.Param("line_id"), c.GetHeader("Cookie"))
	if err != nil {
		ctrl.respondError(c, err, "failed to remove cart item")
		return
	}
	replaySetCookies(c, header)
	c.JSON(http.StatusOK, cart)
}

// replaySetCookies appends each upstream Set-Cookie header to the
// outbound response individually. Merging or re-parsing them would
// drop scoping attributes, so the raw header values pass through
// untouched and in order.
func replaySetCookies(c *gin.Context, header http.Header) {
	for _, value := range header.Values("Set-Cookie") {
		c.Writer.Header().Add("Set-Cookie", value)
	}
}

func (ctrl *CartController) respondError(c *gin.Context, err error, fallback string) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(vErr.Message))
		return
	}

	var uErr *services.UpstreamError
	if errors.As(err, &uErr) {
		log.Printf("cart engine error: status=%d detail=%s", uErr.Status, uErr.Detail)
		// Client-correctable statuses pass through; everything else is
		// an opaque internal error. Upstream bodies never reach the
		// browser either way.
		if uErr.Status >= 400 && uErr.Status < 500 {
			c.JSON(uErr.Status, models.NewErrorResponse("invalid cart request"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("internal server error"))
		return
	}

	log.Printf("cart engine transport error: %v", err)
	c.JSON(http.StatusInternalServerError, models.NewErrorResponse(fallback))
}

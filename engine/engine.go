// Package engine is an in-process implementation of the authoritative
// cart engine's HTTP contract, used for local development and tests.
// Production deployments point ENGINE_URL at the real service and this
// package is never mounted. It owns everything the contract assigns to
// the engine: session minting, line identity, and total computation.
package engine

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cart-gateway/models"
)

const (
	SessionCookieName = "cart_session"
	DefaultCurrency   = "USD"
)

// LineID derives the stable line identity for a product. Re-adding a
// product therefore always resolves to the same line.
func LineID(productID int) string {
	return "H" + strconv.Itoa(productID)
}

type Engine struct {
	sessions SessionStore
	ttl      time.Duration

	// writes are load-modify-save against the session store, so they
	// are serialized to keep concurrent mutations of distinct lines
	// from overwriting each other.
	mu sync.Mutex
}

func New(sessions SessionStore, ttl time.Duration) *Engine {
	return &Engine{sessions: sessions, ttl: ttl}
}

func (e *Engine) Register(r gin.IRouter) {
	r.GET("/cart", e.getCart)
	r.POST("/cart/add", e.addItem)
	r.PUT("/cart/update/:line_id", e.updateLine)
	r.DELETE("/cart/remove/:line_id", e.removeLine)
}

func emptyCart() *models.Cart {
	return &models.Cart{Items: []models.CartLineItem{}, Currency: DefaultCurrency}
}

// loadSession resolves the inbound session cookie to its cart. An
// absent or unknown token yields an empty cart and no token; sessions
// are only minted by writes.
func (e *Engine) loadSession(c *gin.Context) (string, *models.Cart, error) {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return "", emptyCart(), nil
	}
	cart, ok, err := e.sessions.Load(c.Request.Context(), token)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", emptyCart(), nil
	}
	return token, cart, nil
}

func (e *Engine) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(e.ttl.Seconds()), "/", "", false, true)
}

func (e *Engine) save(c *gin.Context, token string, cart *models.Cart) bool {
	if err := e.sessions.Save(c.Request.Context(), token, cart); err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("failed to persist cart"))
		return false
	}
	// Every successful write refreshes the session cookie, which also
	// covers first-write session establishment.
	e.setSessionCookie(c, token)
	return true
}

func (e *Engine) getCart(c *gin.Context) {
	_, cart, err := e.loadSession(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("failed to load cart"))
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (e *Engine) addItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("product and a positive quantity are required"))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	token, cart, err := e.loadSession(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("failed to load cart"))
		return
	}
	if token == "" {
		token = uuid.NewString()
	}

	lineID := LineID(req.Product.ID)
	if line, ok := cart.Line(lineID); ok {
		line.Quantity += req.Quantity
	} else {
		cart.Items = append(cart.Items, models.CartLineItem{
			LineID:    lineID,
			ProductID: req.Product.ID,
			Title:     req.Product.Title,
			Price:     req.Product.Price,
			Quantity:  req.Quantity,
			Image:     req.Product.Image,
			Brand:     req.Product.Brand,
			Category:  req.Product.Category,
			SKU:       req.Product.SKU,
		})
	}
	cart.Recompute()

	if !e.save(c, token, cart) {
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (e *Engine) updateLine(c *gin.Context) {
	var req models.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("quantity must be a number"))
		return
	}
	if *req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("quantity must be zero or greater"))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	token, cart, err := e.loadSession(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("failed to load cart"))
		return
	}
	// No session means nothing to update; the empty cart is already
	// the correct answer.
	if token == "" {
		c.JSON(http.StatusOK, cart)
		return
	}

	lineID := c.Param("line_id")
	if *req.Quantity == 0 {
		cart.Items = removeItem(cart.Items, lineID)
	} else if line, ok := cart.Line(lineID); ok {
		line.Quantity = *req.Quantity
	} else {
		// Updating an absent line is a no-op, mirroring idempotent
		// removal.
		c.JSON(http.StatusOK, cart)
		return
	}
	cart.Recompute()

	if !e.save(c, token, cart) {
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (e *Engine) removeLine(c *gin.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	token, cart, err := e.loadSession(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse("failed to load cart"))
		return
	}
	if token == "" {
		c.JSON(http.StatusOK, cart)
		return
	}

	cart.Items = removeItem(cart.Items, c.Param("line_id"))
	cart.Recompute()

	if !e.save(c, token, cart) {
		return
	}
	c.JSON(http.StatusOK, cart)
}

func removeItem(items []models.CartLineItem, lineID string) []models.CartLineItem {
	kept := items[:0]
	for _, item := range items {
		if item.LineID != lineID {
			kept = append(kept, item)
		}
	}
	return kept
}

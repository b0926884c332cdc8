package models

import "fmt"

// Cart is the authoritative engine's representation of a session cart.
// The gateway never constructs one locally; it only decodes what the
// engine returns. Prices are integer minor currency units.
type Cart struct {
	Items    []CartLineItem `json:"items"`
	Subtotal int            `json:"subtotal"`
	Currency string         `json:"currency"`
}

type CartLineItem struct {
	LineID    string `json:"line_id"`
	ProductID int    `json:"product_id"`
	Title     string `json:"title"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int    `json:"line_total"`
	Image     string `json:"image,omitempty"`
	Brand     string `json:"brand,omitempty"`
	Category  string `json:"category,omitempty"`
	SKU       string `json:"sku,omitempty"`
}

// Line returns the item carrying lineID, if present.
func (c *Cart) Line(lineID string) (*CartLineItem, bool) {
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Recompute rewrites every line total and the subtotal from price and
// quantity. Only the engine calls this; cart totals received over the
// wire are taken as-is.
func (c *Cart) Recompute() {
	subtotal := 0
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].Price * c.Items[i].Quantity
		subtotal += c.Items[i].LineTotal
	}
	c.Subtotal = subtotal
}

// Validate checks the arithmetic invariants every cart must satisfy:
// line_total = price * quantity per line, subtotal = sum of line totals,
// quantity >= 1 for every stored line.
func (c *Cart) Validate() error {
	subtotal := 0
	for _, item := range c.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("line %s: quantity %d below 1", item.LineID, item.Quantity)
		}
		if item.LineTotal != item.Price*item.Quantity {
			return fmt.Errorf("line %s: line_total %d != %d * %d", item.LineID, item.LineTotal, item.Price, item.Quantity)
		}
		subtotal += item.LineTotal
	}
	if c.Subtotal != subtotal {
		return fmt.Errorf("subtotal %d != sum of line totals %d", c.Subtotal, subtotal)
	}
	return nil
}

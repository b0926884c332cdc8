package models

type ProductInput struct {
	ID       int    `json:"id" binding:"required"`
	Title    string `json:"title"`
	Price    int    `json:"price" binding:"required"`
	Image    string `json:"image"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	SKU      string `json:"sku"`
}

type AddItemRequest struct {
	Product  ProductInput `json:"product" binding:"required"`
	Quantity int          `json:"quantity" binding:"required,gt=0"`
}

type UpdateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

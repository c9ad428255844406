package domain

import "time"

type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Active bool   `json:"isActive"`
}

type Product struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"categoryId,omitempty"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	Stock      int       `json:"stock"`
	Available  bool      `json:"isAvailable"`
	CreatedAt  time.Time `json:"createdAt"`
}

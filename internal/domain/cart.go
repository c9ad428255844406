package domain

import "time"

// Cart is the single cart owned by a user. Lines are mutable up to the
// moment an order is assembled from them.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Lines     []CartLine `json:"items,omitempty"`
}

// CartLine carries the product's current unit price and category as
// read at snapshot time.
type CartLine struct {
	ID          string `json:"id"`
	CartID      string `json:"cartId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	CategoryID  string `json:"categoryId,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Subtotal is the sum of quantity times unit price over all lines.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		total += int64(line.Quantity) * line.UnitPrice
	}
	return total
}

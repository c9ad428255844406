package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCanceled  OrderStatus = "canceled"
)

// Order is an immutable snapshot of a cart at checkout time. Only the
// status field changes after creation.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	TrackingCode   string      `json:"trackingCode"`
	Status         OrderStatus `json:"status"`
	TotalAmount    int64       `json:"totalAmount"`
	DiscountAmount int64       `json:"discountAmount"`
	FinalAmount    int64       `json:"finalAmount"`
	CouponCode     *string     `json:"couponCode,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Lines          []OrderLine `json:"items,omitempty"`
}

// OrderLine freezes quantity and unit price at order time; the price is
// never re-read from the live catalog.
type OrderLine struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

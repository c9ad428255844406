package domain

import (
	"fmt"
	"time"
)

// DiscountKind is resolved once when a coupon is loaded from storage;
// evaluation never re-parses the raw string.
type DiscountKind int

const (
	DiscountPercent DiscountKind = iota
	DiscountFixed
)

func ParseDiscountKind(s string) (DiscountKind, error) {
	switch s {
	case "percent":
		return DiscountPercent, nil
	case "fixed":
		return DiscountFixed, nil
	}
	return 0, fmt.Errorf("unknown discount type %q", s)
}

func (k DiscountKind) String() string {
	if k == DiscountFixed {
		return "fixed"
	}
	return "percent"
}

func (k DiscountKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

type Coupon struct {
	ID             string       `json:"id"`
	Code           string       `json:"code"`
	Description    string       `json:"description,omitempty"`
	Kind           DiscountKind `json:"discountType"`
	Value          int64        `json:"discountValue"`
	StartDate      time.Time    `json:"startDate"`
	EndDate        *time.Time   `json:"endDate,omitempty"`
	Active         bool         `json:"isActive"`
	MinOrderAmount int64        `json:"minOrderAmount"`
	MaxUsage       *int         `json:"maxUsage,omitempty"`
	UsageCount     int          `json:"usageCount"`

	// Scope sets; an empty set means the coupon is unrestricted on that
	// dimension.
	ProductIDs  []string `json:"-"`
	CategoryIDs []string `json:"-"`
	UserIDs     []string `json:"-"`
}

// Discount is the outcome of a successful coupon evaluation against a
// cart snapshot. Amounts are integers in minor currency units.
type Discount struct {
	Code        string       `json:"couponCode"`
	Kind        DiscountKind `json:"couponType"`
	Value       int64        `json:"couponValue"`
	Amount      int64        `json:"discountAmount"`
	CartAmount  int64        `json:"cartAmount"`
	FinalAmount int64        `json:"finalAmount"`
}

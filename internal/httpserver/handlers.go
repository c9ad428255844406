package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop-checkout/internal/domain"
	checkoutsvc "shop-checkout/internal/service/checkout"
	reconcilesvc "shop-checkout/internal/service/reconcile"

	"github.com/gin-gonic/gin"
)

type checkoutService interface {
	Checkout(ctx context.Context, userID, couponCode string) (*checkoutsvc.Result, error)
}

type reconcileService interface {
	Process(ctx context.Context, authority string, canceled bool) (*reconcilesvc.Result, error)
}

type couponService interface {
	Evaluate(ctx context.Context, userID, code string, cart *domain.Cart) (*domain.Discount, error)
}

type cartReader interface {
	EnsureForUser(ctx context.Context, userID string) (*domain.Cart, error)
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertLine(ctx context.Context, userID, productID string, quantity int) error
}

type orderReader interface {
	GetForUser(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type paymentReader interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
}

type productReader interface {
	List(ctx context.Context) ([]domain.Product, error)
}

type checkoutRequest struct {
	CouponCode string `json:"couponCode"`
}

func checkoutHandler(svc checkoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		result, err := svc.Checkout(c.Request.Context(), currentUser(c), strings.TrimSpace(req.CouponCode))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func verifyPaymentHandler(svc reconcileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authority := strings.TrimSpace(c.Query("Authority"))
		status := strings.TrimSpace(c.Query("Status"))
		if authority == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing Authority"})
			return
		}

		result, err := svc.Process(c.Request.Context(), authority, status == "NOK")
		if err != nil {
			writeError(c, err)
			return
		}

		if result.Status == domain.PaymentSuccess {
			c.JSON(http.StatusOK, gin.H{"status": "Payment Successful", "ref_id": result.RefID, "trackingCode": result.TrackingCode})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"status": "Payment canceled or failed", "trackingCode": result.TrackingCode})
	}
}

type verifyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

func verifyCouponHandler(svc couponService, carts cartReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
			return
		}

		userID := currentUser(c)
		cart, err := carts.GetByUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(c, domain.ErrEmptyCart)
				return
			}
			writeError(c, err)
			return
		}

		discount, err := svc.Evaluate(c.Request.Context(), userID, strings.TrimSpace(req.Code), cart)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, discount)
	}
}

func provisionCartHandler(carts cartReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.Param("userId"))
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
			return
		}
		cart, err := carts.EnsureForUser(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// Quantity 0 removes the line, so it must not be flagged required.
type cartLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"min=0"`
}

func putCartLineHandler(carts cartReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cartLineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "productId and quantity required"})
			return
		}

		userID := currentUser(c)
		if err := carts.UpsertLine(c.Request.Context(), userID, req.ProductID, req.Quantity); err != nil {
			writeError(c, err)
			return
		}
		cart, err := carts.GetByUser(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func getCartHandler(carts cartReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.GetByUser(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func listOrdersHandler(orders orderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.ListByUser(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if list == nil {
			list = []domain.Order{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func getOrderHandler(orders orderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.GetForUser(c.Request.Context(), currentUser(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listPaymentsHandler(payments paymentReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := payments.ListByUser(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		if list == nil {
			list = []domain.Payment{}
		}
		c.JSON(http.StatusOK, list)
	}
}

func listProductsHandler(products productReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := products.List(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		if list == nil {
			list = []domain.Product{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// writeError maps domain errors to HTTP statuses. Validation rejections
// and invalid callbacks are 400, unknown entities 404, gateway
// transport failures 502 so the caller knows a retry can help. Internal
// errors never leak their details.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.Rejection(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPayment), errors.Is(err, domain.ErrPaymentInitiation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": domain.ErrGatewayUnavailable.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

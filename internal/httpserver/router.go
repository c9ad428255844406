package httpserver

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps carries the collaborators the routes need.
type Deps struct {
	CheckoutSvc  checkoutService
	ReconcileSvc reconcileService
	CouponSvc    couponService
	Carts        cartReader
	Orders       orderReader
	Payments     paymentReader
	Products     productReader
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) == 1 && corsOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-User-ID")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	// Gateway callback; no identity, the authority token is the proof.
	router.GET("/payments/verify", verifyPaymentHandler(deps.ReconcileSvc))

	// Cart provisioning hook for the identity collaborator.
	router.POST("/users/:userId/cart", provisionCartHandler(deps.Carts))

	router.GET("/products", listProductsHandler(deps.Products))

	authed := router.Group("/", identityMiddleware())
	authed.POST("/checkout", checkoutHandler(deps.CheckoutSvc))
	authed.POST("/coupons/verify", verifyCouponHandler(deps.CouponSvc, deps.Carts))
	authed.GET("/cart", getCartHandler(deps.Carts))
	authed.PUT("/cart/items", putCartLineHandler(deps.Carts))
	authed.GET("/orders", listOrdersHandler(deps.Orders))
	authed.GET("/orders/:id", getOrderHandler(deps.Orders))
	authed.GET("/payments", listPaymentsHandler(deps.Payments))

	return router
}

const userIDKey = "userID"

// identityMiddleware trusts the authenticated user id supplied by the
// identity collaborator in front of this service.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/cart"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-membership/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-membership/internal/pkg/auth"
)

// Dependencies are the services the routes are served by
type Dependencies struct {
	JWT        *auth.JWTManager
	Membership *membership.Service
	Cart       *cart.Service
	Analytics  *analytics.Service
	Renderer   analytics.Renderer
	Logger     logrus.FieldLogger
}

// SetupRoutes registers every API route on the engine
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	SetupAnalyticsRoutes(r.Group("/api/membership"), deps)

	apiV1 := r.Group("/api/v1")
	SetupMembershipRoutes(apiV1, deps)
	SetupCartRoutes(apiV1, deps)
	SetupAdminRoutes(apiV1, deps)
}

// SetupAnalyticsRoutes sets up the membership analytics contract
func SetupAnalyticsRoutes(rg *gin.RouterGroup, deps Dependencies) {
	analyticsHandler := handlers.NewAnalyticsHandler(deps.Analytics, deps.Renderer, deps.Logger)

	analytics := rg.Group("/analytics")
	analytics.Use(middleware.AuthMiddleware(deps.JWT))
	{
		analytics.GET("", analyticsHandler.Get)
		analytics.POST("", analyticsHandler.Track)
	}
}

// SetupMembershipRoutes sets up the customer's membership routes
func SetupMembershipRoutes(rg *gin.RouterGroup, deps Dependencies) {
	membershipHandler := handlers.NewMembershipHandler(deps.Membership, deps.Logger)

	memberships := rg.Group("/membership")
	memberships.Use(middleware.AuthMiddleware(deps.JWT))
	{
		memberships.GET("", membershipHandler.GetMembership)
		memberships.POST("/signup", membershipHandler.Signup)
		memberships.POST("/renew", membershipHandler.Renew)
		memberships.POST("/cancel", membershipHandler.Cancel)
	}
}

// SetupAdminRoutes sets up staff-only membership operations
func SetupAdminRoutes(rg *gin.RouterGroup, deps Dependencies) {
	membershipHandler := handlers.NewMembershipHandler(deps.Membership, deps.Logger)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.JWT), middleware.StaffMiddleware())
	{
		admin.GET("/memberships/:customerId", membershipHandler.GetCustomerMembership)
		admin.POST("/memberships/expire", membershipHandler.ExpireDue)
	}
}

// SetupCartRoutes sets up cart routes. Guests may use carts; members get
// their benefits applied when they send a token.
func SetupCartRoutes(rg *gin.RouterGroup, deps Dependencies) {
	cartHandler := handlers.NewCartHandler(deps.Cart, deps.Logger)

	carts := rg.Group("/cart")
	carts.Use(middleware.OptionalAuthMiddleware(deps.JWT))
	{
		carts.POST("", cartHandler.CreateCart)
		carts.GET("/:id", cartHandler.GetCart)
		carts.POST("/:id/lines", cartHandler.AddLine)
		carts.PUT("/:id/lines/:lineId", cartHandler.UpdateLine)
		carts.DELETE("/:id/lines/:lineId", cartHandler.RemoveLine)
		carts.GET("/:id/benefits", cartHandler.GetBenefits)
		carts.GET("/:id/membership", cartHandler.ValidateMembership)
		carts.POST("/:id/checkout", cartHandler.Checkout)
	}
}

// Package router wires the HTTP endpoints to their handlers and
// middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auction-marketplace/internal/handler"
	"github.com/iliyamo/auction-marketplace/internal/middleware"
	"github.com/iliyamo/auction-marketplace/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Register, login
// and refresh live under /v1/auth without a session; /v1/me and the
// all-sessions logout require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Single-session logout: takes the refresh token in the body, no JWT needed.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	auth.GET("/me", a.Me)
	// All-sessions logout: authenticated, empty body.
	auth.POST("/logout", a.Logout)
}

// RegisterAuctions registers the auction and bid endpoints.  Every
// route requires an authenticated USER or ADMIN; bid deletion is
// additionally gated on ADMIN.  extra carries request-path middleware
// such as the rate limiter and the response cache, applied after
// authentication so keys can include the user id.
func RegisterAuctions(e *echo.Echo, ah *handler.AuctionHandler, bh *handler.BidHandler, jwtSecret string, extra ...echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	g.Use(extra...)

	g.GET("/auctions", ah.List)
	g.POST("/auctions", ah.Create)
	g.GET("/auctions/:id", ah.Get)
	g.PATCH("/auctions/:id", ah.Update)
	g.DELETE("/auctions/:id", ah.Delete)
	g.GET("/auctions/:id/bids", ah.ListBids)
	g.POST("/auctions/:id/bids", ah.PlaceBid)

	g.GET("/bids", bh.List)
	g.DELETE("/bids/:id", bh.Delete, middleware.RequireRole(model.RoleAdmin))
}

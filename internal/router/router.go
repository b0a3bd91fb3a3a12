// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/reshamsu/dlink-colombo/internal/handler"
	"github.com/reshamsu/dlink-colombo/internal/middleware"
	"github.com/reshamsu/dlink-colombo/internal/model"
)

// RegisterRoutes registers the probes used by load balancers.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers dashboard session routes.  Login, refresh and
// logout are open (rate limited); register and me need a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", orPass(limit))
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// route-level middleware keeps these out of the open group above
	e.POST("/v1/auth/register", a.Register, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleAgent))
}

// Public bundles the handlers and middleware of the unauthenticated site API.
type Public struct {
	Listings *handler.PublicListingHandler
	Contact  *handler.ContactHandler
	Config   handler.ClientConfig

	Cache        echo.MiddlewareFunc // grid, detail and hero only
	ContactLimit echo.MiddlewareFunc
}

// RegisterPublic registers the site routes.  The slideshow stream is left
// out of the response cache.
func RegisterPublic(e *echo.Echo, p Public) {
	p.Cache, p.ContactLimit = orPass(p.Cache), orPass(p.ContactLimit)
	g := e.Group("/v1")
	g.GET("/config", handler.Config(p.Config))
	g.GET("/vocabulary", handler.Vocabulary)
	g.GET("/listings", p.Listings.List, p.Cache)
	g.GET("/listings/:id", p.Listings.Get, p.Cache)
	g.GET("/listings/:id/slideshow", p.Listings.Slideshow)
	g.POST("/listings/:id/slideshow/:stream", p.Listings.SlideshowControl)
	g.GET("/heroes/:page", p.Contact.Hero, p.Cache)
	g.POST("/contact", p.Contact.Create, p.ContactLimit)
}

// Dashboard bundles the handlers and middleware of the agent dashboard.
type Dashboard struct {
	Listings *handler.DashboardListingHandler
	Contact  *handler.ContactHandler

	SubmitLock echo.MiddlewareFunc
}

// RegisterDashboard registers ADMIN/AGENT routes under /v1/dashboard.
// Listing writes go through SubmitLock so one user cannot run two
// submissions at once.
func RegisterDashboard(e *echo.Echo, d Dashboard, jwtSecret string) {
	d.SubmitLock = orPass(d.SubmitLock)
	g := e.Group(
		"/v1/dashboard",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleAgent),
	)
	g.GET("/listings", d.Listings.List)
	g.GET("/listings/:id", d.Listings.Get)
	g.POST("/listings", d.Listings.Create, d.SubmitLock)
	g.PUT("/listings/:id", d.Listings.Update, d.SubmitLock)
	g.GET("/contacts", d.Contact.List)
}

func orPass(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m != nil {
		return m
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}

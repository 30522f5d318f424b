package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/clinicops/patient-admin/internal/handler"    // handlers that implement the endpoints
	"github.com/clinicops/patient-admin/internal/middleware" // session and rate-limit middleware
	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/session"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the CAPTCHA, login/logout and password-reset
// endpoints. Both realms share the handlers, bound per route group. The
// rate limiter guards the whole auth surface.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.Use(rl)

	g.GET("/captcha", a.Captcha)

	for _, realm := range []model.Realm{model.RealmStudent, model.RealmStaff} {
		rg := g.Group("/" + realmPath(realm))
		rg.POST("/login", a.Login(realm))
		rg.POST("/logout", a.Logout(realm))
		rg.POST("/reset-request", a.RequestReset(realm))
		rg.GET("/reset/:token", a.ResolveToken(realm))
		rg.PUT("/password/:account", a.CompleteReset(realm))
	}
}

// RegisterAdmin registers the patient and account CRUD surfaces behind the
// session guard. students/staff get their own AccountHandler instance
// bound to the matching table.
func RegisterAdmin(e *echo.Echo, store session.Store, p *handler.PatientHandler, students, staff *handler.AccountHandler) {
	g := e.Group("/v1")
	g.Use(middleware.RequireSession(store))

	g.POST("/patients", p.Create)
	g.GET("/patients", p.List)
	g.GET("/patients/:id", p.Get)
	g.PUT("/patients/:id", p.Update)
	g.DELETE("/patients/:id", p.Delete)
	g.GET("/patients/:id/history", p.History)

	registerAccounts(g.Group("/students"), students)
	registerAccounts(g.Group("/staff"), staff)
}

// realmPath maps a realm to its URL segment.
func realmPath(realm model.Realm) string {
	if realm == model.RealmStaff {
		return "staff"
	}
	return "students"
}

func registerAccounts(g *echo.Group, h *handler.AccountHandler) {
	g.GET("", h.List)
	g.GET("/search/:account", h.Search)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/password", h.SetPassword)
	g.DELETE("/:account", h.Delete)
}

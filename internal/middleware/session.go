package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/patient-admin/internal/session"
)

// RequireSession returns an Echo middleware that admits only requests
// carrying a session cookie whose server-side state holds an authenticated
// principal. The principal's account name and realm are injected into the
// request context under "account" and "realm" for downstream handlers.
func RequireSession(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(session.CookieName)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			d, err := store.Get(c.Request().Context(), ck.Value)
			if err != nil || d.Principal == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set("account", d.Principal)
			c.Set("realm", d.Realm)
			return next(c)
		}
	}
}

package handler

import (
	"context"  // context with cancellation for service calls
	"errors"   // sentinel error matching
	"net/http" // HTTP status codes and cookie primitives
	"strings"  // input normalization
	"time"     // request timeouts and cookie ages

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/clinicops/patient-admin/internal/auth"
	"github.com/clinicops/patient-admin/internal/captcha"
	"github.com/clinicops/patient-admin/internal/config"
	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/session"
	"github.com/clinicops/patient-admin/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Svc    *auth.Service
	Issuer *captcha.Issuer
}

func NewAuthHandler(cfg config.Config, svc *auth.Service, issuer *captcha.Issuer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc, Issuer: issuer}
}

// ----- DTOs -----

type loginReq struct {
	Account  string `json:"account"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}
type resetRequestReq struct {
	Account string `json:"account"`
}
type passwordReq struct {
	Password string `json:"password"`
}

// realmCookieName returns the name of the role-identifying cookie for a
// realm, mirroring the per-role cookies the SPA reads.
func realmCookieName(realm model.Realm) string {
	if realm == model.RealmStaff {
		return "staff_account"
	}
	return "student_account"
}

// sessionID returns the caller's session id, creating one (and setting the
// cookie) when issue is true and no cookie is present yet.
func (h *AuthHandler) sessionID(c echo.Context, issue bool) string {
	if ck, err := c.Cookie(session.CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if !issue {
		return ""
	}
	id := session.NewID()
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Captcha issues a fresh visual challenge bound to the caller's session
// and returns the rendered image.
func (h *AuthHandler) Captcha(c echo.Context) error {
	id := h.sessionID(c, true)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	img, err := h.Issuer.Issue(ctx, id)
	if err != nil {
		c.Logger().Errorf("issue captcha: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "captcha unavailable"})
	}
	return c.Blob(http.StatusOK, "image/png", img)
}

// Login returns the login handler for one realm. On success the realm
// cookie (signed, path /, 14-day max age) is set; accounts still on their
// provisioned default password get a redirect payload instead of the plain
// success body.
func (h *AuthHandler) Login(realm model.Realm) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid body"})
		}
		req.Account = strings.TrimSpace(req.Account)
		if req.Account == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "account/password required"})
		}

		sid := h.sessionID(c, false)
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		res, err := h.Svc.Login(ctx, realm, req.Account, req.Password, req.Captcha, sid)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrCaptchaMismatch):
				return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "captcha mismatch"})
			case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrInvalidCredentials):
				// Same body for both so the response does not reveal
				// which account names exist.
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
			case errors.Is(err, auth.ErrRateLimited):
				return c.JSON(http.StatusTooManyRequests, echo.Map{"success": false, "error": "too many attempts, try again later"})
			default:
				c.Logger().Errorf("login: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "login failed"})
			}
		}

		value, err := utils.NewRealmCookieValue(h.Cfg.CookieSecret, res.Account, string(realm))
		if err != nil {
			c.Logger().Errorf("sign realm cookie: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "login failed"})
		}
		c.SetCookie(&http.Cookie{
			Name:   realmCookieName(realm),
			Value:  value,
			Path:   "/",
			MaxAge: int(utils.RealmCookieTTL / time.Second),
		})

		if res.MustChangePassword {
			return c.JSON(http.StatusOK, echo.Map{"redirect": "/newpwd"})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
}

// Logout returns the logout handler for one realm. Cookies are cleared
// only after the server-side session is destroyed; a destruction failure
// leaves them in place and reports 500.
func (h *AuthHandler) Logout(realm model.Realm) echo.HandlerFunc {
	return func(c echo.Context) error {
		sid := h.sessionID(c, false)
		if sid == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "no active session"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := h.Svc.Logout(ctx, sid); err != nil {
			if errors.Is(err, auth.ErrNoActiveSession) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "no active session"})
			}
			c.Logger().Errorf("logout: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "logout failed"})
		}

		expire := func(name string) {
			c.SetCookie(&http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
		}
		expire(realmCookieName(realm))
		expire(session.CookieName)
		return c.JSON(http.StatusOK, echo.Map{"success": true})
	}
}

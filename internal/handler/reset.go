package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/patient-admin/internal/auth"
	"github.com/clinicops/patient-admin/internal/model"
)

// RequestReset returns the handler that starts the password-reset flow for
// one realm. The response is identical whether or not the account exists.
func (h *AuthHandler) RequestReset(realm model.Realm) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req resetRequestReq
		if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Account) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "account required"})
		}

		// Mail dispatch is bounded separately inside the service; this
		// timeout covers the DB work around it.
		ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
		defer cancel()

		if err := h.Svc.RequestReset(ctx, realm, strings.TrimSpace(req.Account)); err != nil {
			if errors.Is(err, auth.ErrDelivery) {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error sending email"})
			}
			c.Logger().Errorf("reset request: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "reset password email sent"})
	}
}

// ResolveToken returns the handler that maps a reset link token back to an
// account name. Unknown and expired tokens are indistinguishable in the
// response.
func (h *AuthHandler) ResolveToken(realm model.Realm) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Param("token")
		if token == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		account, err := h.Svc.ResolveToken(ctx, realm, token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenNotFound) || errors.Is(err, auth.ErrTokenExpired) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found or token expired"})
			}
			c.Logger().Errorf("resolve token: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resolve failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"account": account})
	}
}

// CompleteReset returns the handler that installs a new password for the
// named account, activating it and consuming any outstanding reset token.
func (h *AuthHandler) CompleteReset(realm model.Realm) echo.HandlerFunc {
	return func(c echo.Context) error {
		account := c.Param("account")
		var req passwordReq
		if err := c.Bind(&req); err != nil || req.Password == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := h.Svc.CompleteReset(ctx, realm, account, req.Password); err != nil {
			if errors.Is(err, auth.ErrAccountNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
			}
			c.Logger().Errorf("complete reset: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully", "status": model.StatusActive})
	}
}

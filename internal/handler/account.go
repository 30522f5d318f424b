package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/patient-admin/internal/config"
	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/repository"
	"github.com/clinicops/patient-admin/internal/utils"
)

// AccountHandler exposes the admin CRUD surface for one realm's accounts.
// Two instances are registered, one per realm.
type AccountHandler struct {
	Cfg  config.Config
	Repo *repository.AccountRepo
}

func NewAccountHandler(cfg config.Config, repo *repository.AccountRepo) *AccountHandler {
	return &AccountHandler{Cfg: cfg, Repo: repo}
}

type accountReq struct {
	Account         string `json:"account"`
	Department      string `json:"department"`
	EducationSystem string `json:"education_system"`
	Level           string `json:"level"`
	AccType         string `json:"acc_type"`
	UpdatedBy       string `json:"updated_by"`
}

type setPasswordReq struct {
	Password  string `json:"password"`
	UpdatedBy string `json:"updated_by"`
}

func (req accountReq) toModel() model.Account {
	return model.Account{
		Account:         strings.TrimSpace(req.Account),
		Department:      req.Department,
		EducationSystem: req.EducationSystem,
		Level:           req.Level,
		AccType:         req.AccType,
		UpdatedBy:       req.UpdatedBy,
	}
}

// List returns one page of accounts: `{"data": [...], "total": n}`.
func (h *AccountHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accounts, total, err := h.Repo.List(ctx, page, limit)
	if err != nil {
		c.Logger().Errorf("list accounts: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": accounts, "total": total})
}

// Search returns accounts whose name contains the path fragment.
func (h *AccountHandler) Search(c echo.Context) error {
	fragment := c.Param("account")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	accounts, err := h.Repo.Search(ctx, fragment)
	if err != nil {
		c.Logger().Errorf("search accounts: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(accounts) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}
	return c.JSON(http.StatusOK, accounts)
}

// Create provisions a new account. The initial password is the account
// name itself and the status marks it as must-change, so the first login
// routes the owner through the password-change flow.
func (h *AccountHandler) Create(c echo.Context) error {
	var req accountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a := req.toModel()
	if a.Account == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account required"})
	}

	hash, err := utils.HashPassword(a.Account, h.Cfg.BcryptCost)
	if err != nil {
		c.Logger().Errorf("hash provisioned password: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Repo.Create(ctx, a, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
		}
		c.Logger().Errorf("create account: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "account created", "id": id})
}

// Update rewrites the account name and bookkeeping columns of one row.
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req accountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	a := req.toModel()
	if a.Account == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Update(ctx, id, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		c.Logger().Errorf("update account: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account updated successfully"})
}

// SetPassword installs a new password for one row via the admin surface.
func (h *AccountHandler) SetPassword(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setPasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		c.Logger().Errorf("hash password: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.UpdatePasswordByID(ctx, id, hash, req.UpdatedBy); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		c.Logger().Errorf("set password: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}

// Delete removes one account by login name.
func (h *AccountHandler) Delete(c echo.Context) error {
	account := c.Param("account")
	if account == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "account required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		c.Logger().Errorf("delete account: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account deleted successfully"})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/repository"
)

// PatientHandler exposes the patient CRUD surface plus the change-history
// listing.
type PatientHandler struct {
	Repo *repository.PatientRepo
}

func NewPatientHandler(repo *repository.PatientRepo) *PatientHandler {
	return &PatientHandler{Repo: repo}
}

type patientReq struct {
	Name             string `json:"name"`
	Identifier       string `json:"identifier"`
	Gender           string `json:"gender"`
	Birthdate        string `json:"birthdate"`
	NationalID       string `json:"national_id"`
	Phone            string `json:"phone"`
	Mobile           string `json:"mobile"`
	Address          string `json:"address"`
	Email            string `json:"email"`
	EmergencyContact string `json:"emergency_contact"`
	Relationship     string `json:"relationship"`
	EmergencyPhone   string `json:"emergency_phone"`
}

func (req patientReq) toModel() model.Patient {
	return model.Patient{
		Name:             strings.TrimSpace(req.Name),
		Identifier:       strings.TrimSpace(req.Identifier),
		Gender:           req.Gender,
		Birthdate:        req.Birthdate,
		NationalID:       req.NationalID,
		Phone:            req.Phone,
		Mobile:           req.Mobile,
		Address:          req.Address,
		Email:            req.Email,
		EmergencyContact: req.EmergencyContact,
		Relationship:     req.Relationship,
		EmergencyPhone:   req.EmergencyPhone,
	}
}

func (req patientReq) missingRequired() bool {
	return strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Identifier) == "" ||
		req.Gender == "" ||
		req.Birthdate == "" ||
		req.NationalID == ""
}

// Create inserts a patient record.
func (h *PatientHandler) Create(c echo.Context) error {
	var req patientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.missingRequired() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Repo.Create(ctx, req.toModel())
	if err != nil {
		if errors.Is(err, repository.ErrPatientExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "patient identifier already exists"})
		}
		c.Logger().Errorf("create patient: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create patient failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "patient created successfully", "id": id})
}

// List returns all patients: `{"total_count": n, "patients": [...]}`.
func (h *PatientHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	patients, total, err := h.Repo.List(ctx)
	if err != nil {
		c.Logger().Errorf("list patients: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"total_count": total, "patients": patients})
}

// Get returns one patient by id.
func (h *PatientHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "patient not found"})
		}
		c.Logger().Errorf("get patient: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// Update rewrites one patient row; the prior state lands in history.
func (h *PatientHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req patientReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.missingRequired() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Update(ctx, id, req.toModel()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "patient not found"})
		}
		c.Logger().Errorf("update patient: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "patient updated successfully"})
}

// Delete removes one patient row; the final state lands in history.
func (h *PatientHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "patient not found"})
		}
		c.Logger().Errorf("delete patient: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "patient deleted successfully"})
}

// History lists the recorded snapshots for one patient, newest first.
func (h *PatientHandler) History(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Repo.History(ctx, id)
	if err != nil {
		c.Logger().Errorf("patient history: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(entries) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no history found for the given patient id"})
	}
	return c.JSON(http.StatusOK, entries)
}

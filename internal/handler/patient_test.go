package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/patient-admin/internal/repository"
)

func newPatientTestEnv(t *testing.T) (*PatientHandler, sqlmock.Sqlmock, *echo.Echo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPatientHandler(repository.NewPatientRepo(db)), mock, echo.New()
}

func postPatient(e *echo.Echo, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestPatientCreateMissingRequiredFields(t *testing.T) {
	h, _, e := newPatientTestEnv(t)

	// Birthdate and national id are absent.
	rec, c := postPatient(e, "/v1/patients", `{"name":"Lin Mei","identifier":"P-2026-0001","gender":"F"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required fields")
}

func TestPatientCreateDuplicateIdentifier(t *testing.T) {
	h, mock, e := newPatientTestEnv(t)

	mock.ExpectExec("INSERT INTO patients").
		WillReturnError(errDuplicate{})

	rec, c := postPatient(e, "/v1/patients",
		`{"name":"Lin Mei","identifier":"P-2026-0001","gender":"F","birthdate":"1994-07-02","national_id":"A123456789"}`)
	require.NoError(t, h.Create(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "Error 1062: Duplicate entry" }

func TestPatientGetInvalidID(t *testing.T) {
	h, _, e := newPatientTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/patients/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

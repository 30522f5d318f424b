package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/clinicops/patient-admin/internal/model"
)

// PatientRepo persists patient records and their change history. Every
// update or delete snapshots the previous row into patient_history inside
// the same transaction, so history can never drift from the data.
type PatientRepo struct{ DB *sql.DB }

func NewPatientRepo(db *sql.DB) *PatientRepo { return &PatientRepo{DB: db} }

// DATE_FORMAT keeps birthdate a plain yyyy-mm-dd string on the wire, the
// same shape clients submit it in.
const patientColumns = `id, name, identifier, gender, DATE_FORMAT(birthdate, '%Y-%m-%d'), national_id,
	phone, mobile, address, email, emergency_contact, relationship, emergency_phone, created_at`

type patientScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row patientScanner) (model.Patient, error) {
	var p model.Patient
	err := row.Scan(&p.ID, &p.Name, &p.Identifier, &p.Gender, &p.Birthdate, &p.NationalID,
		&p.Phone, &p.Mobile, &p.Address, &p.Email, &p.EmergencyContact, &p.Relationship,
		&p.EmergencyPhone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Patient{}, ErrNotFound
	}
	return p, err
}

// Create inserts a patient and returns its ID.
func (r *PatientRepo) Create(ctx context.Context, p model.Patient) (uint64, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO patients (name, identifier, gender, birthdate, national_id, phone, mobile,
			address, email, emergency_contact, relationship, emergency_phone)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Identifier, p.Gender, p.Birthdate, p.NationalID, p.Phone, p.Mobile,
		p.Address, p.Email, p.EmergencyContact, p.Relationship, p.EmergencyPhone)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrPatientExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one patient.
func (r *PatientRepo) GetByID(ctx context.Context, id uint64) (model.Patient, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE id=? LIMIT 1", id)
	return scanPatient(row)
}

// List returns all patients ordered by id, plus the total count.
func (r *PatientRepo) List(ctx context.Context) ([]model.Patient, int, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+patientColumns+" FROM patients ORDER BY id ASC")
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, len(out), nil
}

// snapshot copies the current row for id into patient_history within tx.
// op is "UPDATE" or "DELETE". Returns ErrNotFound if the row is absent.
func (r *PatientRepo) snapshot(ctx context.Context, tx *sql.Tx, id uint64, op string) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO patient_history (patient_id, name, identifier, gender, birthdate, national_id,
			phone, mobile, address, email, emergency_contact, relationship, emergency_phone, operation)
		SELECT id, name, identifier, gender, birthdate, national_id,
			phone, mobile, address, email, emergency_contact, relationship, emergency_phone, ?
		FROM patients WHERE id = ?`, op, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Update rewrites a patient row, recording the prior state in history.
func (r *PatientRepo) Update(ctx context.Context, id uint64, p model.Patient) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.snapshot(ctx, tx, id, "UPDATE"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE patients
		SET name=?, identifier=?, gender=?, birthdate=?, national_id=?, phone=?, mobile=?,
		    address=?, email=?, emergency_contact=?, relationship=?, emergency_phone=?
		WHERE id=?`,
		p.Name, p.Identifier, p.Gender, p.Birthdate, p.NationalID, p.Phone, p.Mobile,
		p.Address, p.Email, p.EmergencyContact, p.Relationship, p.EmergencyPhone, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a patient row, recording the final state in history.
func (r *PatientRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.snapshot(ctx, tx, id, "DELETE"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM patients WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// History lists the recorded snapshots for one patient, newest first.
func (r *PatientRepo) History(ctx context.Context, patientID uint64) ([]model.PatientHistory, error) {
	query, args, err := sq.Select("history_id", "patient_id", "name", "identifier", "gender",
		"DATE_FORMAT(birthdate, '%Y-%m-%d')", "national_id", "phone", "mobile", "address", "email",
		"emergency_contact", "relationship", "emergency_phone", "edit_date", "operation").
		From("patient_history").
		Where(sq.Eq{"patient_id": patientID}).
		OrderBy("edit_date DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PatientHistory{}
	for rows.Next() {
		var h model.PatientHistory
		if err := rows.Scan(&h.HistoryID, &h.PatientID, &h.Name, &h.Identifier, &h.Gender,
			&h.Birthdate, &h.NationalID, &h.Phone, &h.Mobile, &h.Address, &h.Email,
			&h.EmergencyContact, &h.Relationship, &h.EmergencyPhone, &h.EditDate, &h.Operation); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

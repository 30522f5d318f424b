package model

import "time"

// Realm distinguishes the two parallel account tables. Student and staff
// accounts share the same shape but live in separate tables, so every
// account operation is parameterized by realm.
type Realm string

const (
	RealmStudent Realm = "student"
	RealmStaff   Realm = "staff"
)

// Account statuses. A freshly provisioned account starts as
// StatusMustChangePassword and is flipped to StatusActive when the owner
// completes a password change.
const (
	StatusActive             = "active"
	StatusMustChangePassword = "must_change_password"
)

// Account mirrors one row of `student_accounts` or `staff_accounts`.
//
// Fields:
//
//	ID              – primary key identifier.
//	Account         – unique, stable login name.
//	PasswordHash    – bcrypt hash; plaintext is never stored or logged.
//	Status          – active | must_change_password.
//	LoginAttempts   – consecutive failed login counter, reset on success.
//	LastAttemptTime – timestamp of the most recent attempt (nullable).
//	ResetToken      – outstanding password-reset token (nullable).
//	TokenExpireTime – when the reset token stops being valid (nullable).
//	Department, EducationSystem, Level – student bookkeeping columns.
//	AccType         – staff bookkeeping column.
//	UpdatedAt/UpdatedBy – audit columns maintained by the CRUD surface.
type Account struct {
	ID              uint64     `json:"id"`
	Account         string     `json:"account"`
	PasswordHash    string     `json:"-"`
	Status          string     `json:"status"`
	LoginAttempts   int        `json:"login_attempts"`
	LastAttemptTime *time.Time `json:"last_attempt_time,omitempty"`
	ResetToken      *string    `json:"-"`
	TokenExpireTime *time.Time `json:"-"`
	Department      string     `json:"department,omitempty"`
	EducationSystem string     `json:"education_system,omitempty"`
	Level           string     `json:"level,omitempty"`
	AccType         string     `json:"acc_type,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UpdatedBy       string     `json:"updated_by"`
}

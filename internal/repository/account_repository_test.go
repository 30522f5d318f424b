package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/patient-admin/internal/model"
)

func newMockAccountRepo(t *testing.T, realm model.Realm) (*AccountRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAccountRepo(db, realm), mock
}

func TestNewAccountRepoRejectsUnknownRealm(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.Panics(t, func() { NewAccountRepo(db, model.Realm("admin")) })
}

func TestGetByAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	last := time.Date(2026, 3, 14, 8, 55, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM student_accounts WHERE account=\\?").
		WithArgs("s1001").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account", "password_hash", "status",
			"login_attempts", "last_attempt_time", "reset_token", "token_expire_time",
		}).AddRow(7, "s1001", "$2a$04$hash", model.StatusActive, 2, last, nil, nil))

	a, err := repo.GetByAccount(context.Background(), "s1001")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), a.ID)
	assert.Equal(t, "s1001", a.Account)
	assert.Equal(t, 2, a.LoginAttempts)
	require.NotNil(t, a.LastAttemptTime)
	assert.Nil(t, a.ResetToken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByAccountNotFound(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectQuery("SELECT (.+) FROM student_accounts WHERE account=\\?").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordFailure(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cutoff := now.Add(-15 * time.Minute)

	mock.ExpectExec("UPDATE student_accounts").
		WithArgs(cutoff, now, "s1001", 5, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	counted, err := repo.RecordFailure(context.Background(), "s1001", now, cutoff, 5)
	require.NoError(t, err)
	assert.True(t, counted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordFailureOnLockedAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	now := time.Now().UTC()
	cutoff := now.Add(-15 * time.Minute)

	// The guard refuses the update while the row is locked: zero rows
	// affected means the attempt was not counted.
	mock.ExpectExec("UPDATE student_accounts").
		WithArgs(cutoff, now, "s1001", 5, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 0))

	counted, err := repo.RecordFailure(context.Background(), "s1001", now, cutoff, 5)
	require.NoError(t, err)
	assert.False(t, counted)
}

func TestRecordSuccess(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	now := time.Now().UTC()
	mock.ExpectExec("UPDATE student_accounts SET login_attempts = 0").
		WithArgs(now, "s1001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordSuccess(context.Background(), "s1001", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetResetToken(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStaff)

	expire := time.Now().UTC().Add(time.Hour)
	mock.ExpectExec("UPDATE staff_accounts SET reset_token").
		WithArgs("cafebabe", expire, "t42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), "t42", "cafebabe", expire))
}

func TestSetResetTokenUnknownAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStaff)

	mock.ExpectExec("UPDATE staff_accounts SET reset_token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetResetToken(context.Background(), "ghost", "cafebabe", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteReset(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("UPDATE student_accounts").
		WithArgs("$2a$04$newhash", model.StatusActive, "s1001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CompleteReset(context.Background(), "s1001", "$2a$04$newhash"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteResetUnknownAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("UPDATE student_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CompleteReset(context.Background(), "ghost", "$2a$04$newhash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDuplicateAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("INSERT INTO student_accounts").
		WillReturnError(errors.New("Error 1062: Duplicate entry 's1001' for key 'account'"))

	_, err := repo.Create(context.Background(), model.Account{Account: "s1001"}, "$2a$04$hash")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestCreateStudent(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("INSERT INTO student_accounts").
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := repo.Create(context.Background(), model.Account{
		Account:    "s1001",
		Department: "dentistry",
		UpdatedBy:  "t42",
	}, "$2a$04$hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
}

func TestUpdateUnknownID(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStaff)

	mock.ExpectExec("UPDATE staff_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), 99, model.Account{Account: "t42"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("DELETE FROM student_accounts WHERE account = \\?").
		WithArgs("s1001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "s1001"))
}

func TestDeleteUnknownAccount(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	mock.ExpectExec("DELETE FROM student_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListStudents(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStudent)

	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM student_accounts ORDER BY id LIMIT 2 OFFSET 2").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account", "status", "login_attempts", "updated_at", "updated_by",
			"department", "education_system", "level",
		}).
			AddRow(3, "s1003", model.StatusActive, 0, updated, "t42", "dentistry", "daytime", "3").
			AddRow(4, "s1004", model.StatusMustChangePassword, 0, updated, "t42", "nursing", "evening", "1"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM student_accounts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	out, total, err := repo.List(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, out, 2)
	assert.Equal(t, "s1003", out[0].Account)
	assert.Equal(t, "dentistry", out[0].Department)
	assert.Equal(t, model.StatusMustChangePassword, out[1].Status)
}

func TestSearchStaff(t *testing.T) {
	repo, mock := newMockAccountRepo(t, model.RealmStaff)

	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM staff_accounts WHERE account LIKE \\?").
		WithArgs("%t4%").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account", "status", "login_attempts", "updated_at", "updated_by", "acc_type",
		}).AddRow(1, "t42", model.StatusActive, 0, updated, "admin", "clinician"))

	out, err := repo.Search(context.Background(), "t4")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "t42", out[0].Account)
	assert.Equal(t, "clinician", out[0].AccType)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/clinicops/patient-admin/internal/model"
)

// AccountRepo is the credential store for one realm. The student and staff
// tables share a shape, so a single repository serves both; the table name
// comes from a compile-time whitelist in NewAccountRepo and is never taken
// from request input.
type AccountRepo struct {
	DB    *sql.DB
	table string
	realm model.Realm
}

// NewAccountRepo builds a repository bound to the given realm's table.
// Unknown realms panic: the realm is wired at startup, not at request time.
func NewAccountRepo(db *sql.DB, realm model.Realm) *AccountRepo {
	var table string
	switch realm {
	case model.RealmStudent:
		table = "student_accounts"
	case model.RealmStaff:
		table = "staff_accounts"
	default:
		panic(fmt.Sprintf("unknown account realm %q", realm))
	}
	return &AccountRepo{DB: db, table: table, realm: realm}
}

// Realm reports which realm this repository serves.
func (r *AccountRepo) Realm() model.Realm { return r.realm }

// authColumns are the columns the auth and reset flows need. Bookkeeping
// columns are realm-specific and only touched by the CRUD surface.
const authColumns = "id, account, password_hash, status, login_attempts, last_attempt_time, reset_token, token_expire_time"

func (r *AccountRepo) scanAuthRow(row *sql.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Account, &a.PasswordHash, &a.Status,
		&a.LoginAttempts, &a.LastAttemptTime, &a.ResetToken, &a.TokenExpireTime)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

// GetByAccount fetches one account row by its login name.
func (r *AccountRepo) GetByAccount(ctx context.Context, account string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE account=? LIMIT 1", authColumns, r.table),
		account)
	return r.scanAuthRow(row)
}

// RecordFailure counts one failed login attempt in a single conditional
// UPDATE so concurrent attempts cannot lose updates. A failure inside the
// lockout window increments the counter; a failure after the window has
// elapsed restarts it at 1. The guard refuses to touch a row that is
// currently locked (counter at the limit and window still open), so locked
// attempts are never counted.
//
// The returned bool reports whether the attempt was counted; false means
// the account was locked when the statement ran.
func (r *AccountRepo) RecordFailure(ctx context.Context, account string, now, cutoff time.Time, maxAttempts int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET login_attempts = IF(last_attempt_time IS NULL OR last_attempt_time < ?, 1, login_attempts + 1),
		    last_attempt_time = ?
		WHERE account = ?
		  AND (login_attempts < ? OR last_attempt_time IS NULL OR last_attempt_time < ?)`, r.table),
		cutoff, now, account, maxAttempts, cutoff)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordSuccess resets the attempt counter and stamps the attempt time
// after a successful credential check.
func (r *AccountRepo) RecordSuccess(ctx context.Context, account string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET login_attempts = 0, last_attempt_time = ? WHERE account = ?", r.table),
		now, account)
	return err
}

// SetResetToken records an outstanding password-reset token and its expiry
// on the account row.
func (r *AccountRepo) SetResetToken(ctx context.Context, account, token string, expire time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET reset_token = ?, token_expire_time = ? WHERE account = ?", r.table),
		token, expire, account)
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

// GetByResetToken resolves an outstanding token back to its account row.
func (r *AccountRepo) GetByResetToken(ctx context.Context, token string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE reset_token=? LIMIT 1", authColumns, r.table),
		token)
	return r.scanAuthRow(row)
}

// CompleteReset installs the new password hash, activates the account,
// clears the reset token and expiry, and zeroes the attempt counter. The
// token is single-use: once the reset completes it cannot be replayed.
func (r *AccountRepo) CompleteReset(ctx context.Context, account, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET password_hash = ?, status = ?, reset_token = NULL, token_expire_time = NULL, login_attempts = 0
		WHERE account = ?`, r.table),
		passwordHash, model.StatusActive, account)
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

// extras returns the realm-specific bookkeeping columns and their values
// for one account, used by the CRUD surface.
func (r *AccountRepo) extras(a model.Account) map[string]interface{} {
	if r.realm == model.RealmStudent {
		return map[string]interface{}{
			"department":       a.Department,
			"education_system": a.EducationSystem,
			"level":            a.Level,
		}
	}
	return map[string]interface{}{"acc_type": a.AccType}
}

func (r *AccountRepo) extraColumns() []string {
	if r.realm == model.RealmStudent {
		return []string{"department", "education_system", "level"}
	}
	return []string{"acc_type"}
}

func (r *AccountRepo) scanListRow(rows *sql.Rows) (model.Account, error) {
	var a model.Account
	dest := []interface{}{&a.ID, &a.Account, &a.Status, &a.LoginAttempts, &a.UpdatedAt, &a.UpdatedBy}
	if r.realm == model.RealmStudent {
		dest = append(dest, &a.Department, &a.EducationSystem, &a.Level)
	} else {
		dest = append(dest, &a.AccType)
	}
	return a, rows.Scan(dest...)
}

// Create inserts a freshly provisioned account: the stored hash is the
// caller's (the account name hashed, per the provisioning convention) and
// the status marks the password as still-default.
func (r *AccountRepo) Create(ctx context.Context, a model.Account, passwordHash string) (uint64, error) {
	cols := map[string]interface{}{
		"account":       a.Account,
		"password_hash": passwordHash,
		"status":        model.StatusMustChangePassword,
		"updated_by":    a.UpdatedBy,
	}
	for k, v := range r.extras(a) {
		cols[k] = v
	}
	query, args, err := sq.Insert(r.table).SetMap(cols).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrAccountExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites the account name and bookkeeping columns of one row.
func (r *AccountRepo) Update(ctx context.Context, id uint64, a model.Account) error {
	sets := map[string]interface{}{
		"account":    a.Account,
		"updated_by": a.UpdatedBy,
	}
	for k, v := range r.extras(a) {
		sets[k] = v
	}
	query, args, err := sq.Update(r.table).SetMap(sets).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
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

// UpdatePasswordByID installs a new hash via the admin CRUD surface. The
// account status is left untouched; only the owner's own reset flips a
// provisioned account to active.
func (r *AccountRepo) UpdatePasswordByID(ctx context.Context, id uint64, passwordHash, updatedBy string) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET password_hash = ?, updated_by = ? WHERE id = ?", r.table),
		passwordHash, updatedBy, id)
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

// Delete removes one account row by login name.
func (r *AccountRepo) Delete(ctx context.Context, account string) error {
	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE account = ?", r.table), account)
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

// List returns one page of accounts ordered by id plus the total row
// count for pagination.
func (r *AccountRepo) List(ctx context.Context, page, limit int) ([]model.Account, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	cols := append([]string{"id", "account", "status", "login_attempts", "updated_at", "updated_by"}, r.extraColumns()...)
	query, args, err := sq.Select(cols...).
		From(r.table).
		OrderBy("id").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Account{}
	for rows.Next() {
		a, err := r.scanListRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Search returns accounts whose login name contains the fragment. The
// pattern is bound as a parameter, never spliced into the statement.
func (r *AccountRepo) Search(ctx context.Context, fragment string) ([]model.Account, error) {
	cols := append([]string{"id", "account", "status", "login_attempts", "updated_at", "updated_by"}, r.extraColumns()...)
	query, args, err := sq.Select(cols...).
		From(r.table).
		Where(sq.Like{"account": "%" + fragment + "%"}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Account{}
	for rows.Next() {
		a, err := r.scanListRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

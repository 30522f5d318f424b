package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/patient-admin/internal/auth"
	"github.com/clinicops/patient-admin/internal/captcha"
	"github.com/clinicops/patient-admin/internal/config"
	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/repository"
	"github.com/clinicops/patient-admin/internal/session"
	"github.com/clinicops/patient-admin/internal/utils"
)

// stubStore is a minimal in-memory account store for handler tests; the
// conditional-update lockout semantics live in their own tests, so here it
// only needs to hand out rows and accept writes.
type stubStore struct {
	accounts map[string]*model.Account
}

func (s *stubStore) GetByAccount(_ context.Context, account string) (model.Account, error) {
	if a, ok := s.accounts[account]; ok {
		return *a, nil
	}
	return model.Account{}, repository.ErrNotFound
}

func (s *stubStore) RecordFailure(_ context.Context, account string, now, _ time.Time, max int) (bool, error) {
	a, ok := s.accounts[account]
	if !ok {
		return false, nil
	}
	if a.LoginAttempts >= max {
		return false, nil
	}
	a.LoginAttempts++
	t := now
	a.LastAttemptTime = &t
	return true, nil
}

func (s *stubStore) RecordSuccess(_ context.Context, account string, now time.Time) error {
	if a, ok := s.accounts[account]; ok {
		a.LoginAttempts = 0
		t := now
		a.LastAttemptTime = &t
	}
	return nil
}

func (s *stubStore) SetResetToken(_ context.Context, account, token string, expire time.Time) error {
	a, ok := s.accounts[account]
	if !ok {
		return repository.ErrNotFound
	}
	a.ResetToken = &token
	e := expire
	a.TokenExpireTime = &e
	return nil
}

func (s *stubStore) GetByResetToken(_ context.Context, token string) (model.Account, error) {
	for _, a := range s.accounts {
		if a.ResetToken != nil && *a.ResetToken == token {
			return *a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (s *stubStore) CompleteReset(_ context.Context, account, hash string) error {
	a, ok := s.accounts[account]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	a.Status = model.StatusActive
	a.ResetToken = nil
	a.TokenExpireTime = nil
	return nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

type authTestEnv struct {
	h        *AuthHandler
	e        *echo.Echo
	sessions *session.MemoryStore
	store    *stubStore
}

func newAuthTestEnv(t *testing.T, accounts ...*model.Account) *authTestEnv {
	t.Helper()
	store := &stubStore{accounts: make(map[string]*model.Account)}
	for _, a := range accounts {
		store.accounts[a.Account] = a
	}
	sessions := session.NewMemoryStore(time.Hour)
	svc := auth.NewService(auth.Deps{
		Stores:       map[model.Realm]auth.AccountStore{model.RealmStudent: store},
		Sessions:     sessions,
		Mailer:       nopMailer{},
		BcryptCost:   4,
		MailDomain:   "clinic.example.edu",
		ResetBaseURL: "https://portal.example.edu",
		MailTimeout:  time.Second,
	})
	cfg := config.Config{CookieSecret: "test-secret", BcryptCost: 4}
	return &authTestEnv{
		h:        NewAuthHandler(cfg, svc, captcha.NewIssuer(sessions)),
		e:        echo.New(),
		sessions: sessions,
		store:    store,
	}
}

func (env *authTestEnv) seedSession(t *testing.T, sid string, d session.Data) {
	t.Helper()
	require.NoError(t, env.sessions.Save(context.Background(), sid, d))
}

func (env *authTestEnv) postJSON(path, body, sid string) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sid})
	}
	rec := httptest.NewRecorder()
	return rec, env.e.NewContext(req, rec)
}

func testAccount(t *testing.T, name, password string) *model.Account {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	return &model.Account{ID: 1, Account: name, PasswordHash: hash, Status: model.StatusActive}
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, ck := range res.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestCaptchaIssuesChallenge(t *testing.T) {
	env := newAuthTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/captcha", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	require.NoError(t, env.h.Captcha(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.NotEmpty(t, rec.Body.Bytes())

	sid := findCookie(rec.Result(), session.CookieName)
	require.NotNil(t, sid, "a session cookie is issued with the first challenge")
	assert.True(t, sid.HttpOnly)

	d, err := env.sessions.Get(context.Background(), sid.Value)
	require.NoError(t, err)
	assert.NotEmpty(t, d.Captcha)
}

func TestCaptchaReusesExistingSession(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedSession(t, "sid-1", session.Data{Principal: "s1001"})

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/captcha", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()

	require.NoError(t, env.h.Captcha(env.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, findCookie(rec.Result(), session.CookieName))

	d, err := env.sessions.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "s1001", d.Principal, "existing session state survives a new challenge")
	assert.NotEmpty(t, d.Captcha)
}

func TestLoginSuccessSetsRealmCookie(t *testing.T) {
	env := newAuthTestEnv(t, testAccount(t, "s1001", "hunter2"))
	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})

	rec, c := env.postJSON("/v1/auth/students/login",
		`{"account":"s1001","password":"hunter2","captcha":"XK4P"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	ck := findCookie(rec.Result(), "student_account")
	require.NotNil(t, ck)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, int(utils.RealmCookieTTL/time.Second), ck.MaxAge)

	account, realm, err := utils.ParseRealmCookieValue("test-secret", ck.Value)
	require.NoError(t, err)
	assert.Equal(t, "s1001", account)
	assert.Equal(t, "student", realm)
}

func TestLoginProvisionedPasswordRedirects(t *testing.T) {
	acct := testAccount(t, "s1001", "s1001")
	acct.Status = model.StatusMustChangePassword
	env := newAuthTestEnv(t, acct)
	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})

	rec, c := env.postJSON("/v1/auth/students/login",
		`{"account":"s1001","password":"s1001","captcha":"XK4P"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redirect":"/newpwd"}`, rec.Body.String())
}

func TestLoginCaptchaMismatch(t *testing.T) {
	env := newAuthTestEnv(t, testAccount(t, "s1001", "hunter2"))
	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})

	rec, c := env.postJSON("/v1/auth/students/login",
		`{"account":"s1001","password":"hunter2","captcha":"WRONG"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "captcha mismatch")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newAuthTestEnv(t, testAccount(t, "s1001", "hunter2"))

	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})
	recUnknown, c := env.postJSON("/v1/auth/students/login",
		`{"account":"ghost","password":"whatever","captcha":"XK4P"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})
	recWrongPwd, c := env.postJSON("/v1/auth/students/login",
		`{"account":"s1001","password":"nope","captcha":"XK4P"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	// Unknown account and wrong password must not be tellable apart.
	assert.Equal(t, http.StatusUnauthorized, recUnknown.Code)
	assert.Equal(t, recUnknown.Code, recWrongPwd.Code)
	assert.JSONEq(t, recUnknown.Body.String(), recWrongPwd.Body.String())
}

func TestLoginLockedAccount(t *testing.T) {
	acct := testAccount(t, "s1001", "hunter2")
	acct.LoginAttempts = auth.MaxLoginAttempts
	now := time.Now().UTC()
	acct.LastAttemptTime = &now
	env := newAuthTestEnv(t, acct)
	env.seedSession(t, "sid-1", session.Data{Captcha: "XK4P"})

	rec, c := env.postJSON("/v1/auth/students/login",
		`{"account":"s1001","password":"hunter2","captcha":"XK4P"}`, "sid-1")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many attempts")
}

func TestLoginMissingFields(t *testing.T) {
	env := newAuthTestEnv(t)

	rec, c := env.postJSON("/v1/auth/students/login", `{"account":"  ","password":""}`, "")
	require.NoError(t, env.h.Login(model.RealmStudent)(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookies(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedSession(t, "sid-1", session.Data{Principal: "s1001", Realm: "student"})

	rec, c := env.postJSON("/v1/auth/students/logout", "", "sid-1")
	require.NoError(t, env.h.Logout(model.RealmStudent)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := env.sessions.Get(context.Background(), "sid-1")
	assert.ErrorIs(t, err, session.ErrNotFound)

	for _, name := range []string{"student_account", session.CookieName} {
		ck := findCookie(rec.Result(), name)
		require.NotNil(t, ck, name)
		assert.Negative(t, ck.MaxAge, name)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newAuthTestEnv(t)

	rec, c := env.postJSON("/v1/auth/students/logout", "", "")
	require.NoError(t, env.h.Logout(model.RealmStudent)(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "cookies stay untouched when nothing was destroyed")
}

func TestRequestResetAnonymizesUnknownAccounts(t *testing.T) {
	env := newAuthTestEnv(t, testAccount(t, "s1001", "hunter2"))

	recKnown, c := env.postJSON("/v1/auth/students/reset-request", `{"account":"s1001"}`, "")
	require.NoError(t, env.h.RequestReset(model.RealmStudent)(c))

	recUnknown, c := env.postJSON("/v1/auth/students/reset-request", `{"account":"ghost"}`, "")
	require.NoError(t, env.h.RequestReset(model.RealmStudent)(c))

	assert.Equal(t, http.StatusOK, recKnown.Code)
	assert.Equal(t, recKnown.Code, recUnknown.Code)
	assert.JSONEq(t, recKnown.Body.String(), recUnknown.Body.String())
}

func TestResolveToken(t *testing.T) {
	acct := testAccount(t, "s1001", "hunter2")
	token := "cafebabe"
	expire := time.Now().UTC().Add(time.Hour)
	acct.ResetToken = &token
	acct.TokenExpireTime = &expire
	env := newAuthTestEnv(t, acct)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/students/reset/cafebabe", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("cafebabe")

	require.NoError(t, env.h.ResolveToken(model.RealmStudent)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"account":"s1001"}`, rec.Body.String())
}

func TestResolveTokenUnknown(t *testing.T) {
	env := newAuthTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/students/reset/bogus", nil)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	c.SetParamNames("token")
	c.SetParamValues("bogus")

	require.NoError(t, env.h.ResolveToken(model.RealmStudent)(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "account not found or token expired")
}

func TestCompleteResetActivatesAccount(t *testing.T) {
	acct := testAccount(t, "s1001", "s1001")
	acct.Status = model.StatusMustChangePassword
	env := newAuthTestEnv(t, acct)

	rec, c := env.postJSON("/v1/auth/students/password/s1001", `{"password":"n3w-Secret"}`, "")
	c.SetParamNames("account")
	c.SetParamValues("s1001")

	require.NoError(t, env.h.CompleteReset(model.RealmStudent)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.StatusActive)

	stored := env.store.accounts["s1001"]
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "n3w-Secret"))
}

func TestCompleteResetUnknownAccount(t *testing.T) {
	env := newAuthTestEnv(t)

	rec, c := env.postJSON("/v1/auth/students/password/ghost", `{"password":"n3w-Secret"}`, "")
	c.SetParamNames("account")
	c.SetParamValues("ghost")

	require.NoError(t, env.h.CompleteReset(model.RealmStudent)(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

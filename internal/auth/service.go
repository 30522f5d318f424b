// Package auth implements the authenticator and password-reset flows: the
// per-attempt state machine of login (captcha gate, lockout, credential
// check, session issuance), logout, and the token-based reset path. HTTP
// concerns stay in the handler layer; this package works against the
// session gateway, the credential stores and the mail transport.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/queue"
	"github.com/clinicops/patient-admin/internal/repository"
	"github.com/clinicops/patient-admin/internal/session"
	"github.com/clinicops/patient-admin/internal/utils"
)

// Lockout policy: after MaxLoginAttempts consecutive failures, every
// attempt inside LockoutWindow is rejected without being counted.
const (
	MaxLoginAttempts = 5
	LockoutWindow    = 15 * time.Minute
)

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

// AccountStore is the slice of the credential store the auth flows need.
// *repository.AccountRepo satisfies it.
type AccountStore interface {
	GetByAccount(ctx context.Context, account string) (model.Account, error)
	RecordFailure(ctx context.Context, account string, now, cutoff time.Time, maxAttempts int) (bool, error)
	RecordSuccess(ctx context.Context, account string, now time.Time) error
	SetResetToken(ctx context.Context, account, token string, expire time.Time) error
	GetByResetToken(ctx context.Context, token string) (model.Account, error)
	CompleteReset(ctx context.Context, account, passwordHash string) error
}

// Mailer dispatches one outbound message under the given context.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Deps bundles everything the service needs. Stores must contain an entry
// per realm the routes expose.
type Deps struct {
	Stores       map[model.Realm]AccountStore
	Sessions     session.Store
	Mailer       Mailer
	Log          zerolog.Logger
	BcryptCost   int
	MailDomain   string // reset mail goes to account@MailDomain
	ResetBaseURL string // reset link prefix
	MailTimeout  time.Duration
}

// Service implements login, logout and the password-reset flow.
type Service struct {
	deps     Deps
	now      func() time.Time
	newToken func() (string, error)
	publish  func(ctx context.Context, ev queue.AuthEvent)
}

// NewService wires a Service. Audit events go to the message broker,
// best-effort: a broker outage never fails the request that produced the
// event.
func NewService(deps Deps) *Service {
	s := &Service{
		deps:     deps,
		now:      time.Now,
		newToken: utils.NewResetToken,
	}
	s.publish = func(ctx context.Context, ev queue.AuthEvent) {
		_ = queue.PublishAuthEvent(ctx, deps.Log, ev)
	}
	return s
}

// LoginResult reports a successful credential check. MustChangePassword is
// set for accounts still on their provisioned default password; the caller
// should redirect to the password-change page, but the session is
// authenticated either way.
type LoginResult struct {
	Account            string
	Realm              model.Realm
	MustChangePassword bool
}

// Login runs one login attempt against the given realm.
//
// The pending CAPTCHA answer is consumed whether or not it matches, so a
// challenge can never be replayed across attempts. The lockout check runs
// before the credential check and a locked account is rejected without any
// state mutation. Failure counting is delegated to the store's conditional
// update so concurrent attempts cannot lose increments.
func (s *Service) Login(ctx context.Context, realm model.Realm, account, password, captchaAnswer, sessionID string) (LoginResult, error) {
	store, ok := s.deps.Stores[realm]
	if !ok {
		return LoginResult{}, fmt.Errorf("no account store for realm %q", realm)
	}

	pending, err := s.takeCaptcha(ctx, sessionID)
	if err != nil {
		return LoginResult{}, err
	}
	if pending == "" || !strings.EqualFold(pending, strings.TrimSpace(captchaAnswer)) {
		return LoginResult{}, ErrCaptchaMismatch
	}

	acct, err := store.GetByAccount(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrAccountNotFound
		}
		return LoginResult{}, fmt.Errorf("load account: %w", err)
	}

	now := s.now().UTC()
	if s.isLocked(acct, now) {
		s.publish(ctx, s.event(queue.EventLoginLocked, realm, account, ""))
		return LoginResult{}, ErrRateLimited
	}

	if !utils.VerifyPassword(acct.PasswordHash, password) {
		counted, err := store.RecordFailure(ctx, account, now, now.Add(-LockoutWindow), MaxLoginAttempts)
		if err != nil {
			return LoginResult{}, fmt.Errorf("record failed attempt: %w", err)
		}
		if !counted {
			// Lost the race against a concurrent attempt that filled the
			// counter: the account is locked now, report it as such.
			s.publish(ctx, s.event(queue.EventLoginLocked, realm, account, "concurrent"))
			return LoginResult{}, ErrRateLimited
		}
		s.publish(ctx, s.event(queue.EventLoginFailed, realm, account, ""))
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := store.RecordSuccess(ctx, account, now); err != nil {
		return LoginResult{}, fmt.Errorf("record successful attempt: %w", err)
	}
	if err := s.deps.Sessions.Save(ctx, sessionID, session.Data{
		Principal: account,
		Realm:     string(realm),
	}); err != nil {
		return LoginResult{}, fmt.Errorf("save session: %w", err)
	}

	s.publish(ctx, s.event(queue.EventLoginSucceeded, realm, account, ""))
	return LoginResult{
		Account:            account,
		Realm:              realm,
		MustChangePassword: acct.Status == model.StatusMustChangePassword,
	}, nil
}

// Logout destroys the server-side session. Destruction failures are
// surfaced, not swallowed: the caller must not clear cookies unless the
// session is really gone.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	d, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("load session: %w", err)
	}
	if d.Principal == "" {
		return ErrNoActiveSession
	}
	if err := s.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	s.publish(ctx, s.event(queue.EventLogout, model.Realm(d.Realm), d.Principal, ""))
	return nil
}

// takeCaptcha reads and clears the pending challenge answer in one step.
// A missing session means no challenge was ever issued; the empty answer
// then fails the comparison in Login.
func (s *Service) takeCaptcha(ctx context.Context, sessionID string) (string, error) {
	d, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	pending := d.Captcha
	if pending != "" {
		d.Captcha = ""
		if err := s.deps.Sessions.Save(ctx, sessionID, d); err != nil {
			return "", fmt.Errorf("consume captcha: %w", err)
		}
	}
	return pending, nil
}

func (s *Service) isLocked(acct model.Account, now time.Time) bool {
	return acct.LoginAttempts >= MaxLoginAttempts &&
		acct.LastAttemptTime != nil &&
		now.Sub(acct.LastAttemptTime.UTC()) < LockoutWindow
}

func (s *Service) event(name string, realm model.Realm, account, detail string) queue.AuthEvent {
	return queue.AuthEvent{
		Event:   name,
		Realm:   string(realm),
		Account: account,
		Detail:  detail,
		At:      s.now().UTC().Format(time.RFC3339),
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinicops/patient-admin/internal/model"
	"github.com/clinicops/patient-admin/internal/queue"
	"github.com/clinicops/patient-admin/internal/repository"
	"github.com/clinicops/patient-admin/internal/utils"
)

// RequestReset issues a reset token for the account and mails the reset
// link. The caller receives the same nil result whether or not the account
// exists, so the endpoint cannot be used to probe for account names; for
// unknown accounts nothing is persisted and no mail is sent.
//
// Mail dispatch runs under MailTimeout and a failure is reported as
// ErrDelivery — the token is already persisted at that point, so the user
// can retry the request without invalidating anything.
func (s *Service) RequestReset(ctx context.Context, realm model.Realm, account string) error {
	store, ok := s.deps.Stores[realm]
	if !ok {
		return fmt.Errorf("no account store for realm %q", realm)
	}

	if _, err := store.GetByAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.deps.Log.Info().Str("realm", string(realm)).Msg("reset requested for unknown account")
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expire := s.now().UTC().Add(ResetTokenTTL)
	if err := store.SetResetToken(ctx, account, token, expire); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	to := account + "@" + s.deps.MailDomain
	link := strings.TrimRight(s.deps.ResetBaseURL, "/") + "/reset-password/" + token
	body := "Please click on the following link to reset your password: " + link

	mailCtx, cancel := context.WithTimeout(ctx, s.deps.MailTimeout)
	defer cancel()
	if err := s.deps.Mailer.Send(mailCtx, to, "Password Reset", body); err != nil {
		s.deps.Log.Error().Err(err).Str("realm", string(realm)).Msg("reset mail dispatch failed")
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	s.publish(ctx, s.event(queue.EventResetRequested, realm, account, ""))
	return nil
}

// ResolveToken maps an outstanding reset token back to its account name.
// Expiry is enforced here: a token older than ResetTokenTTL resolves to
// ErrTokenExpired even though the row still carries it.
func (s *Service) ResolveToken(ctx context.Context, realm model.Realm, token string) (string, error) {
	store, ok := s.deps.Stores[realm]
	if !ok {
		return "", fmt.Errorf("no account store for realm %q", realm)
	}

	acct, err := store.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("resolve token: %w", err)
	}
	if acct.TokenExpireTime == nil || s.now().UTC().After(acct.TokenExpireTime.UTC()) {
		return "", ErrTokenExpired
	}
	return acct.Account, nil
}

// CompleteReset installs the new password, activates the account and
// clears the reset token so it cannot be replayed.
func (s *Service) CompleteReset(ctx context.Context, realm model.Realm, account, newPassword string) error {
	store, ok := s.deps.Stores[realm]
	if !ok {
		return fmt.Errorf("no account store for realm %q", realm)
	}

	hash, err := utils.HashPassword(newPassword, s.deps.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := store.CompleteReset(ctx, account, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("complete reset: %w", err)
	}

	s.publish(ctx, s.event(queue.EventResetCompleted, realm, account, ""))
	return nil
}

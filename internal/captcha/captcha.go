// Package captcha issues the visual challenges that gate the login form.
// The expected answer is bound to the caller's session; a challenge stays
// valid until it is consumed by a login attempt, replaced by a newer one,
// or the session expires.
package captcha

import (
	"bytes"
	"context"
	"errors"

	"github.com/steambap/captcha"

	"github.com/clinicops/patient-admin/internal/session"
)

// Image dimensions of the rendered challenge.
const (
	width  = 150
	height = 50
)

// Issuer generates challenges and records their answers on the session.
type Issuer struct {
	sessions session.Store
}

// NewIssuer builds an Issuer on top of the given session store.
func NewIssuer(s session.Store) *Issuer {
	return &Issuer{sessions: s}
}

// Issue renders a new text challenge as PNG bytes and stores its expected
// answer on the session identified by id, overwriting any prior pending
// answer. Other session state (an authenticated principal, for instance)
// is preserved.
func (i *Issuer) Issue(ctx context.Context, id string) ([]byte, error) {
	data, err := captcha.New(width, height)
	if err != nil {
		return nil, err
	}

	d, err := i.sessions.Get(ctx, id)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, err
	}
	d.Captcha = data.Text
	if err := i.sessions.Save(ctx, id, d); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := data.WriteImage(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package session implements the server-side session gateway. Sessions are
// keyed by an opaque id delivered in the `sid` cookie and hold at most one
// authenticated principal and at most one pending CAPTCHA answer.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// CookieName is the name of the cookie carrying the opaque session id.
const CookieName = "sid"

// ErrNotFound is returned when a session id has no stored state (never
// created, expired, or destroyed).
var ErrNotFound = errors.New("session not found")

// Data is the state held for one session.
type Data struct {
	Principal string `json:"principal,omitempty"` // account name, set on login
	Realm     string `json:"realm,omitempty"`     // student | staff
	Captcha   string `json:"captcha,omitempty"`   // pending challenge answer
}

// Store is the session gateway contract: per-id get/set/delete with a TTL
// applied on every save. Implementations do not coordinate across ids.
type Store interface {
	Get(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, d Data) error
	Delete(ctx context.Context, id string) error
}

// NewID returns a fresh opaque session id.
func NewID() string {
	return uuid.NewString()
}

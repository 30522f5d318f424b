// Package queue defines message payloads exchanged over the message broker.
package queue

const AuditQueueName = "auth.audit"

// Audit event names published by the authenticator and reset flow.
const (
	EventLoginSucceeded = "login.succeeded"
	EventLoginFailed    = "login.failed"
	EventLoginLocked    = "login.locked"
	EventLogout         = "logout"
	EventResetRequested = "reset.requested"
	EventResetCompleted = "reset.completed"
)

// AuthEvent is published for every auth-sensitive operation. It carries
// enough information for downstream consumers to log or alert without
// querying the primary database. Passwords and tokens are never included.
type AuthEvent struct {
	Event   string `json:"event"`
	Realm   string `json:"realm"`
	Account string `json:"account"`
	Detail  string `json:"detail,omitempty"`
	At      string `json:"at"` // RFC 3339, UTC
}

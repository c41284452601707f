package domain

import "time"

// AuthEventType names an entry in the authentication audit trail.
type AuthEventType string

const (
	EventSignInSucceeded AuthEventType = "signin_succeeded"
	EventSignInFailed    AuthEventType = "signin_failed"
	EventSignInThrottled AuthEventType = "signin_throttled"
	EventSignUp          AuthEventType = "signup"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventRefreshRejected AuthEventType = "refresh_rejected"
	EventUserUpdated     AuthEventType = "user_updated"
	EventUserDeleted     AuthEventType = "user_deleted"
)

// AuthEvent is a persisted audit record.
type AuthEvent struct {
	ID         string
	Type       AuthEventType
	Username   string
	RemoteIP   string
	Detail     string
	OccurredAt time.Time
}

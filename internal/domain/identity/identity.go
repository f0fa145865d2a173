// Package identity derives the voter identifier for a request. Credentials are
// carried in an explicit Session rather than read from ambient state.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Session is the per-request credential set.
type Session struct {
	// UserID is set when the request carried a valid bearer token.
	UserID string
	// GuestID is the identifier the client had persisted, if any.
	GuestID string
}

// Authenticated reports whether the session belongs to a logged-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// GuestID returns stored when it is a usable identifier, otherwise newID().
// The second result is true when a new identifier was minted and the caller
// must persist it.
func GuestID(stored string, newID func() string) (string, bool) {
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored, false
	}
	return newID(), true
}

// NewGuestID is the default generator for GuestID.
func NewGuestID() string {
	return uuid.NewString()
}

// Resolve returns the voter identifier for s: the authenticated user id when
// present, otherwise the persisted or freshly minted guest id. minted reports
// whether the caller must hand a new guest id back to the client.
func Resolve(s Session, newID func() string) (voterID string, minted bool) {
	if s.Authenticated() {
		return s.UserID, false
	}
	return GuestID(s.GuestID, newID)
}

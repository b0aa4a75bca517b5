// Package notifications implements the per-user notification feed. Other
// domains create entries; users read, mark seen, and delete their own.
package notifications

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a notification lookup matches nothing the
// caller owns.
var ErrNotFound = errors.New("notification not found")

// Notification is one entry in a user's feed. A nil SeenAt means unread.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	SeenAt    *time.Time `json:"seenAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

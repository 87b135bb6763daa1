package domain

import (
	"slices"
	"time"
)

// Notification is a feed entry addressed either to one user or to every holder
// of a role. Read is relative to the user the entry was loaded for; ReadBy
// keeps one entry per reader so a role-wide notification stays unread for
// the holders who have not opened it.
type Notification struct {
	ID            string    `json:"id"`
	RecipientID   string    `json:"recipient_id,omitempty"`
	RecipientRole Role      `json:"recipient_role,omitempty"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Link          string    `json:"link,omitempty"`
	Read          bool      `json:"read"`
	ReadBy        []string  `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// VisibleTo reports whether id sees the notification in its feed.
func (n *Notification) VisibleTo(id *Identity) bool {
	if id == nil {
		return false
	}
	if n.RecipientID != "" {
		return n.RecipientID == id.ID
	}
	return n.RecipientRole != "" && n.RecipientRole == id.Role
}

// IsReadBy reports whether userID has marked the notification read.
func (n *Notification) IsReadBy(userID string) bool {
	return userID != "" && slices.Contains(n.ReadBy, userID)
}

// ShardKey picks the value the dispatcher hashes on.
func (n *Notification) ShardKey() string {
	if n.RecipientID != "" {
		return n.RecipientID
	}
	return string(n.RecipientRole)
}

package domain

import (
	"strings"
	"time"
)

// Payload identifies the subject of a notification. It is stored verbatim on the in-app record;
// push sends only carry a deep link derived from it.
type Payload struct {
	Type     string            `json:"type" dynamodbav:"type" validate:"required,max=64"`
	SourceID string            `json:"source_id" dynamodbav:"source_id" validate:"max=128"`
	ActorID  string            `json:"actor_id,omitempty" dynamodbav:"actor_id,omitempty" validate:"max=128"`
	Message  string            `json:"message,omitempty" dynamodbav:"message,omitempty" validate:"max=512"`
	Extra    map[string]string `json:"extra,omitempty" dynamodbav:"extra,omitempty"`
}

// DeepLink returns the in-app route a client should open for this payload.
// An explicit "link" extra wins over the derived "/<type>/<source_id>" form.
func (p Payload) DeepLink() string {
	if link := p.Extra["link"]; link != "" {
		return link
	}
	if p.SourceID == "" {
		return "/notifications"
	}
	return "/" + strings.ToLower(p.Type) + "/" + p.SourceID
}

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Category       Category  `json:"category" dynamodbav:"category"`
	Payload        Payload   `json:"payload" dynamodbav:"payload"`
	IsRead         bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// ListOptions narrows an inbox listing.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
}

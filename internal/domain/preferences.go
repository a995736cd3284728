package domain

import "time"

// NotificationPreferences holds per-category push opt-in flags. A missing record, or a missing
// key within a record, means the category is allowed.
type NotificationPreferences struct {
	UserID    string          `json:"user_id" dynamodbav:"user_id"`
	Flags     map[string]bool `json:"flags" dynamodbav:"flags"`
	UpdatedAt time.Time       `json:"updated" dynamodbav:"updated_at"`
}

func (p *NotificationPreferences) Allows(c Category) bool {
	if p == nil || p.Flags == nil {
		return true
	}
	enabled, ok := p.Flags[string(c)]
	if !ok {
		return true
	}
	return enabled
}

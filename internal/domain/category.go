package domain

import "fmt"

// Category classifies a notification. The set is closed: adding a category means adding a
// constant here and to allCategories, which the preference gate and dispatcher both range over.
type Category string

const (
	CategoryDirectMessage Category = "direct-message"
	CategoryCommunity     Category = "community"
	CategoryForum         Category = "forum"
	CategoryFeedActivity  Category = "feed-activity"
	CategoryEventReminder Category = "event-reminder"
)

var allCategories = []Category{
	CategoryDirectMessage,
	CategoryCommunity,
	CategoryForum,
	CategoryFeedActivity,
	CategoryEventReminder,
}

// AllCategories returns every known category in declaration order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	switch c {
	case CategoryDirectMessage, CategoryCommunity, CategoryForum, CategoryFeedActivity, CategoryEventReminder:
		return true
	}
	return false
}

// ParseCategory converts a wire value into a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q: %w", s, ErrBadRequest)
	}
	return c, nil
}

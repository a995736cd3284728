package dispatch

import (
	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/infrastructure/push"
)

var titles = map[domain.Category]string{
	domain.CategoryDirectMessage: "New message",
	domain.CategoryCommunity:     "Community update",
	domain.CategoryForum:         "New forum activity",
	domain.CategoryFeedActivity:  "New activity",
	domain.CategoryEventReminder: "Upcoming event",
}

var defaultBodies = map[domain.Category]string{
	domain.CategoryDirectMessage: "You have a new direct message.",
	domain.CategoryCommunity:     "There is something new in one of your communities.",
	domain.CategoryForum:         "Someone replied in a forum you follow.",
	domain.CategoryFeedActivity:  "Someone interacted with your post.",
	domain.CategoryEventReminder: "An event you are attending starts soon.",
}

// buildMessage keeps the push minimal; the client opens the deep link to fetch the rest.
func buildMessage(token domain.PushToken, n *domain.Notification) push.Message {
	body := n.Payload.Message
	if body == "" {
		if title := n.Payload.Extra["event_title"]; title != "" && n.Category == domain.CategoryEventReminder {
			body = title + " starts soon."
		} else {
			body = defaultBodies[n.Category]
		}
	}
	return push.Message{
		Token:    token.Token,
		Platform: token.Platform,
		Title:    titles[n.Category],
		Body:     body,
		Data: map[string]string{
			"category":        string(n.Category),
			"notification_id": n.NotificationID,
			"type":            n.Payload.Type,
			"source_id":       n.Payload.SourceID,
			"link":            n.Payload.DeepLink(),
		},
	}
}

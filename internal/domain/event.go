package domain

import "time"

// RSVPStatusGoing is the confirmed attendance state; only these attendees get reminders.
const RSVPStatusGoing = "going"

// Event and EventRSVP are owned by the event subsystem and only read here.
type Event struct {
	EventID     string    `json:"id" dynamodbav:"event_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	StartsAt    time.Time `json:"starts_at" dynamodbav:"starts_at"`
	OrganizerID string    `json:"organizer_id" dynamodbav:"organizer_id"`
}

type EventRSVP struct {
	EventID string `json:"event_id" dynamodbav:"event_id"`
	UserID  string `json:"user_id" dynamodbav:"user_id"`
	Status  string `json:"status" dynamodbav:"status"`
}

// ReminderKey identifies one (event, attendee) reminder.
type ReminderKey struct {
	EventID string
	UserID  string
}

func (k ReminderKey) String() string {
	return k.EventID + ":" + k.UserID
}

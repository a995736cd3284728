package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type fcmMessenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMProvider sends through Firebase Cloud Messaging; it serves both Android and iOS tokens.
type FCMProvider struct {
	client fcmMessenger
}

func NewFCMProvider(ctx context.Context, credentialsFile string) (*FCMProvider, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMProvider{client: client}, nil
}

func (p *FCMProvider) Send(ctx context.Context, msg Message) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	})
	return classifyFCMError(err)
}

func classifyFCMError(err error) error {
	if err == nil {
		return nil
	}
	if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
		return invalidToken("fcm", err)
	}
	return fmt.Errorf("fcm send: %w", err)
}

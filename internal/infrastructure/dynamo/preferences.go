package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-community-notifier/internal/domain"
)

// PreferenceRepo reads the notification_preferences table. Writes belong to the settings surface.
type PreferenceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPreferenceRepo(client *dynamodb.Client, tableName string) *PreferenceRepo {
	return &PreferenceRepo{client: client, tableName: tableName}
}

// Get returns ErrNotFound when the user never saved preferences.
func (r *PreferenceRepo) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("preferences not found: %w", domain.ErrNotFound)
	}
	var p domain.NotificationPreferences
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

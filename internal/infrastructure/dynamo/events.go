package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-community-notifier/internal/domain"
)

// EventRepo reads the event subsystem's events and event_rsvps tables.
// starts_at is stored as an RFC 3339 UTC string.
type EventRepo struct {
	client     *dynamodb.Client
	eventTable string
	rsvpTable  string
}

func NewEventRepo(client *dynamodb.Client, eventTable, rsvpTable string) *EventRepo {
	return &EventRepo{client: client, eventTable: eventTable, rsvpTable: rsvpTable}
}

// ListUpcoming returns events with from <= starts_at <= to.
// RFC 3339 strings with fractional seconds do not sort strictly by time within the same
// second, so the scan range is widened by a second on each side and filtered exactly here.
func (r *EventRepo) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	lo := from.UTC().Truncate(time.Second).Add(-time.Second).Format(time.RFC3339)
	hi := to.UTC().Truncate(time.Second).Add(time.Second).Format(time.RFC3339)
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.eventTable),
		FilterExpression: aws.String("starts_at BETWEEN :lo AND :hi"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lo": &types.AttributeValueMemberS{Value: lo},
			":hi": &types.AttributeValueMemberS{Value: hi},
		},
	}
	var events []domain.Event
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Event
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for _, e := range page {
			if !e.StartsAt.Before(from) && !e.StartsAt.After(to) {
				events = append(events, e)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return events, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ConfirmedAttendees returns the user ids with a "going" RSVP for eventID.
func (r *EventRepo) ConfirmedAttendees(ctx context.Context, eventID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.rsvpTable),
		KeyConditionExpression: aws.String("event_id = :eid"),
		FilterExpression:       aws.String("#st = :going"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":eid":   &types.AttributeValueMemberS{Value: eventID},
			":going": &types.AttributeValueMemberS{Value: domain.RSVPStatusGoing},
		},
	}
	var userIDs []string
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.EventRSVP
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		for _, rsvp := range page {
			userIDs = append(userIDs, rsvp.UserID)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return userIDs, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

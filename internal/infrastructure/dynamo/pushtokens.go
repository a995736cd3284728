package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-community-notifier/internal/domain"
)

// PushTokenRepo provides typed DynamoDB operations for the push_tokens table.
// The table is keyed by token, which is what makes ownership single-valued.
type PushTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPushTokenRepo(client *dynamodb.Client, tableName string) *PushTokenRepo {
	return &PushTokenRepo{client: client, tableName: tableName}
}

// Upsert registers token for userID. An existing row is reassigned to userID with a fresh
// last_used_at; created_at is kept from the first registration.
func (r *PushTokenRepo) Upsert(ctx context.Context, token, userID string, platform domain.Platform, now time.Time) (*domain.PushToken, error) {
	nowAV, err := attributevalue.Marshal(now.UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("token", token),
		UpdateExpression: aws.String("SET #u = :uid, #p = :p, #l = :now, #c = if_not_exists(#c, :now)"),
		ExpressionAttributeNames: map[string]string{
			"#u": "user_id",
			"#p": "platform",
			"#l": "last_used_at",
			"#c": "created_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":p":   &types.AttributeValueMemberS{Value: string(platform)},
			":now": nowAV,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var t domain.PushToken
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PushTokenRepo) Get(ctx context.Context, token string) (*domain.PushToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("token", token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("push token not found: %w", domain.ErrNotFound)
	}
	var t domain.PushToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PushTokenRepo) ListByUser(ctx context.Context, userID string) ([]domain.PushToken, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}
	var tokens []domain.PushToken
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.PushToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return tokens, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// DeleteOwned removes token only while it still belongs to userID.
func (r *PushTokenRepo) DeleteOwned(ctx context.Context, token, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token", token),
		ConditionExpression: aws.String("attribute_exists(#tok) AND user_id = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#tok": "token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return deleteOwnedError(err)
}

// deleteOwnedError tells a vanished token from one owned by someone else: with ALL_OLD
// the failed condition carries the current item only when it still exists.
func deleteOwnedError(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return err
	}
	if len(ccf.Item) == 0 {
		return fmt.Errorf("push token not found: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("push token owned by another user: %w", domain.ErrForbidden)
}

// Delete removes token unconditionally. Deleting a missing token is not an error.
func (r *PushTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	return err
}

// Touch refreshes last_used_at without recreating a token removed in the meantime.
func (r *PushTokenRepo) Touch(ctx context.Context, token string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"last_used_at": at.UTC()})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token", token),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#tok)"),
		ExpressionAttributeNames:  withName(ue.Names, "#tok", "token"),
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("push token not found: %w", domain.ErrNotFound)
	}
	return err
}

func withName(names map[string]string, placeholder, attr string) map[string]string {
	names[placeholder] = attr
	return names
}

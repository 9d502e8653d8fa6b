package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rewear-api/internal/domain"
)

// RedemptionRepo provides typed DynamoDB operations for the redemptions table.
type RedemptionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRedemptionRepo(client *dynamodb.Client, tableName string) *RedemptionRepo {
	return &RedemptionRepo{client: client, tableName: tableName}
}

func (r *RedemptionRepo) Put(ctx context.Context, red *domain.Redemption) error {
	item, err := attributevalue.MarshalMap(red)
	if err != nil {
		return fmt.Errorf("marshal redemption: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RedemptionRepo) Get(ctx context.Context, redemptionID string) (*domain.Redemption, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("redemption_id", redemptionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("redemption not found: %w", domain.ErrNotFound)
	}
	var red domain.Redemption
	if err := attributevalue.UnmarshalMap(out.Item, &red); err != nil {
		return nil, err
	}
	return &red, nil
}

// MarkShipped records the owner's shipment confirmation. The condition rejects
// repeat confirmations and confirmations on settled redemptions.
func (r *RedemptionRepo) MarkShipped(ctx context.Context, redemptionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("redemption_id", redemptionID),
		UpdateExpression:         aws.String("SET #cs = :t, #u = :now"),
		ConditionExpression:      aws.String("#s = :pending AND #cs = :f"),
		ExpressionAttributeNames: map[string]string{"#cs": fieldConfirmedBySender, "#s": fieldStatus, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":       &types.AttributeValueMemberBOOL{Value: true},
			":f":       &types.AttributeValueMemberBOOL{Value: false},
			":pending": &types.AttributeValueMemberS{Value: domain.RedemptionStatusPending},
			":now":     &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("redemption already shipped or settled: %w", domain.ErrInvalidState)
	}
	return err
}

// MarkReceived records the redeemer's receipt confirmation and settles the
// redemption in the same write. The condition requires a prior shipment
// confirmation, so the write fires at most once and never before shipping.
func (r *RedemptionRepo) MarkReceived(ctx context.Context, redemptionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("redemption_id", redemptionID),
		UpdateExpression:    aws.String("SET #cr = :t, #s = :completed, #u = :now"),
		ConditionExpression: aws.String("#s = :pending AND #cs = :t AND #cr = :f"),
		ExpressionAttributeNames: map[string]string{
			"#cr": fieldConfirmedByReceiver,
			"#cs": fieldConfirmedBySender,
			"#s":  fieldStatus,
			"#u":  fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":         &types.AttributeValueMemberBOOL{Value: true},
			":f":         &types.AttributeValueMemberBOOL{Value: false},
			":pending":   &types.AttributeValueMemberS{Value: domain.RedemptionStatusPending},
			":completed": &types.AttributeValueMemberS{Value: domain.RedemptionStatusCompleted},
			":now":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("redemption not shipped yet or already received: %w", domain.ErrInvalidState)
	}
	return err
}

// Cancel moves a pending, unshipped redemption to cancelled.
func (r *RedemptionRepo) Cancel(ctx context.Context, redemptionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("redemption_id", redemptionID),
		UpdateExpression:         aws.String("SET #s = :cancelled, #u = :now"),
		ConditionExpression:      aws.String("#s = :pending AND #cs = :f"),
		ExpressionAttributeNames: map[string]string{"#s": fieldStatus, "#cs": fieldConfirmedBySender, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cancelled": &types.AttributeValueMemberS{Value: domain.RedemptionStatusCancelled},
			":pending":   &types.AttributeValueMemberS{Value: domain.RedemptionStatusPending},
			":f":         &types.AttributeValueMemberBOOL{Value: false},
			":now":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("redemption already shipped or settled: %w", domain.ErrInvalidState)
	}
	return err
}

// ListByUser returns a user's redemptions via the user_id GSI.
func (r *RedemptionRepo) ListByUser(ctx context.Context, userID string) ([]domain.Redemption, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var reds []domain.Redemption
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &reds); err != nil {
		return nil, err
	}
	return reds, nil
}

// GetOpenByItem returns the non-cancelled redemptions for an item. At most
// one pending redemption can exist at a time; the item's lock enforces that.
func (r *RedemptionRepo) GetOpenByItem(ctx context.Context, itemID string) ([]domain.Redemption, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("item_id-index"),
		KeyConditionExpression:   aws.String("item_id = :i"),
		FilterExpression:         aws.String("#s <> :cancelled"),
		ExpressionAttributeNames: map[string]string{"#s": fieldStatus},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":i":         &types.AttributeValueMemberS{Value: itemID},
			":cancelled": &types.AttributeValueMemberS{Value: domain.RedemptionStatusCancelled},
		},
	})
	if err != nil {
		return nil, err
	}
	var reds []domain.Redemption
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &reds); err != nil {
		return nil, err
	}
	return reds, nil
}

package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rewear-api/internal/domain"
)

// ItemRepo provides typed DynamoDB operations for the items table.
//
// Item status and the redemption lock are only ever mutated through the
// methods below, so every availability change goes through one choke point.
type ItemRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewItemRepo(client *dynamodb.Client, tableName string) *ItemRepo {
	return &ItemRepo{client: client, tableName: tableName}
}

func (r *ItemRepo) Put(ctx context.Context, i *domain.Item) error {
	item, err := attributevalue.MarshalMap(i)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ItemRepo) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("item_id", itemID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	var i domain.Item
	if err := attributevalue.UnmarshalMap(out.Item, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *ItemRepo) Update(ctx context.Context, itemID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = nowRFC3339()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SetStatus updates the item's availability status. This is the single
// mutation point for status across all exchange transitions.
func (r *ItemRepo) SetStatus(ctx context.Context, itemID, status string) error {
	return r.Update(ctx, itemID, map[string]interface{}{fieldStatus: status})
}

// Delete removes an item, but only while it is still active. Deleting an item
// that is caught up in an exchange fails the condition.
func (r *ItemRepo) Delete(ctx context.Context, itemID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("item_id", itemID),
		ConditionExpression:      aws.String("#s = :active AND attribute_not_exists(#rid)"),
		ExpressionAttributeNames: map[string]string{"#s": fieldStatus, "#rid": fieldActiveRedemptionID},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":active": &types.AttributeValueMemberS{Value: domain.ItemStatusActive},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("item is part of an open exchange: %w", domain.ErrInvalidState)
	}
	return err
}

// AcquireRedemptionLock claims an item for a redemption. The write succeeds
// only when the item is active and no other non-cancelled redemption holds it,
// so two concurrent redeemers can never both pass the availability check.
func (r *ItemRepo) AcquireRedemptionLock(ctx context.Context, itemID, redemptionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("item_id", itemID),
		UpdateExpression:         aws.String("SET #rid = :rid, #u = :now"),
		ConditionExpression:      aws.String("attribute_not_exists(#rid) AND #s = :active"),
		ExpressionAttributeNames: map[string]string{"#rid": fieldActiveRedemptionID, "#s": fieldStatus, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid":    &types.AttributeValueMemberS{Value: redemptionID},
			":active": &types.AttributeValueMemberS{Value: domain.ItemStatusActive},
			":now":    &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("item has already been redeemed: %w", domain.ErrConflict)
	}
	return err
}

// ReleaseRedemptionLock clears the redemption lock, but only if it is still
// held by the given redemption.
func (r *ItemRepo) ReleaseRedemptionLock(ctx context.Context, itemID, redemptionID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("item_id", itemID),
		UpdateExpression:         aws.String("REMOVE #rid SET #u = :now"),
		ConditionExpression:      aws.String("#rid = :rid"),
		ExpressionAttributeNames: map[string]string{"#rid": fieldActiveRedemptionID, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: redemptionID},
			":now": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("redemption lock not held: %w", domain.ErrInvalidState)
	}
	return err
}

// ListByOwner returns all items listed by a user via the owner_id GSI.
func (r *ItemRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("owner_id-index"),
		KeyConditionExpression: aws.String("owner_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CountByOwner returns the number of items a user has listed. Used by the
// first-listing milestone check.
func (r *ItemRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("owner_id-index"),
		KeyConditionExpression: aws.String("owner_id = :o"),
		Select:                 types.SelectCount,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// ScanPage returns a page of active items matching the filter.
// cursor is a base64-encoded item_id used as ExclusiveStartKey.
func (r *ItemRepo) ScanPage(ctx context.Context, filter domain.ItemFilter, limit int32, cursor string) ([]domain.Item, string, error) {
	exprParts := []string{"#s = :active"}
	names := map[string]string{"#s": fieldStatus}
	values := map[string]types.AttributeValue{
		":active": &types.AttributeValueMemberS{Value: domain.ItemStatusActive},
	}

	addEq := func(attr, value string) {
		if value == "" {
			return
		}
		name := "#" + attr
		placeholder := ":" + attr
		exprParts = append(exprParts, fmt.Sprintf("%s = %s", name, placeholder))
		names[name] = attr
		values[placeholder] = &types.AttributeValueMemberS{Value: value}
	}
	addEq("category", filter.Category)
	addEq("condition", filter.Condition)
	addEq("size", filter.Size)
	addEq("gender", filter.Gender)

	for i, tag := range filter.Tags {
		placeholder := fmt.Sprintf(":tag%d", i)
		exprParts = append(exprParts, fmt.Sprintf("contains(tags, %s)", placeholder))
		values[placeholder] = &types.AttributeValueMemberS{Value: tag}
	}
	if filter.Search != "" {
		names["#title"] = "title"
		values[":search"] = &types.AttributeValueMemberS{Value: filter.Search}
		exprParts = append(exprParts, "(contains(#title, :search) OR contains(tags, :search))")
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(strings.Join(exprParts, " AND ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(limit),
	}
	if cursor != "" {
		itemID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("item_id", itemID)
	}

	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var items []domain.Item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["item_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return items, nextCursor, nil
}

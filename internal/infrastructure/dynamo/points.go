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

// PointsRepo provides typed DynamoDB operations for the points ledger table.
// The ledger is append-only: entries are never updated or deleted.
type PointsRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPointsRepo(client *dynamodb.Client, tableName string) *PointsRepo {
	return &PointsRepo{client: client, tableName: tableName}
}

// Append writes one immutable ledger entry. The condition rejects entry-ID
// reuse, keeping the append idempotent under retries with the same ID.
func (r *PointsRepo) Append(ctx context.Context, e *domain.PointsEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal points entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
	})
	if isConditionalFail(err) {
		return fmt.Errorf("ledger entry already recorded: %w", domain.ErrConflict)
	}
	return err
}

// ListByUser returns a user's ledger entries, newest first, via the
// user_id-created_at GSI.
func (r *PointsRepo) ListByUser(ctx context.Context, userID string) ([]domain.PointsEntry, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :u"),
		ScanIndexForward:       aws.Bool(false),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var entries []domain.PointsEntry
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

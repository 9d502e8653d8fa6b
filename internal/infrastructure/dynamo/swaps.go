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

// SwapRepo provides typed DynamoDB operations for the swaps table.
//
// Every transition is a conditional update guarded on the current status, so
// concurrent callers race at the store and exactly one wins.
type SwapRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSwapRepo(client *dynamodb.Client, tableName string) *SwapRepo {
	return &SwapRepo{client: client, tableName: tableName}
}

func (r *SwapRepo) Put(ctx context.Context, s *domain.Swap) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal swap: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SwapRepo) Get(ctx context.Context, swapID string) (*domain.Swap, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("swap_id", swapID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("swap not found: %w", domain.ErrNotFound)
	}
	var s domain.Swap
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// TransitionFromPending moves a pending swap to newStatus. The write is
// conditional on the swap still being pending; a lost race surfaces as
// ErrInvalidState instead of silently overwriting the winner's transition.
func (r *SwapRepo) TransitionFromPending(ctx context.Context, swapID, newStatus string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("swap_id", swapID),
		UpdateExpression:         aws.String("SET #s = :new, #u = :now"),
		ConditionExpression:      aws.String("#s = :pending"),
		ExpressionAttributeNames: map[string]string{"#s": fieldStatus, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":     &types.AttributeValueMemberS{Value: newStatus},
			":pending": &types.AttributeValueMemberS{Value: domain.SwapStatusPending},
			":now":     &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("swap is no longer pending: %w", domain.ErrInvalidState)
	}
	return err
}

// SetPartyCompleted records one party's completion confirmation on an accepted
// swap and returns the updated record. The condition rejects a second
// confirmation by the same party as well as confirmations on swaps that are
// not accepted.
func (r *SwapRepo) SetPartyCompleted(ctx context.Context, swapID, flagField string) (*domain.Swap, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("swap_id", swapID),
		UpdateExpression:         aws.String("SET #flag = :t, #u = :now"),
		ConditionExpression:      aws.String("#s = :accepted AND #flag = :f"),
		ExpressionAttributeNames: map[string]string{"#flag": flagField, "#s": fieldStatus, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":        &types.AttributeValueMemberBOOL{Value: true},
			":f":        &types.AttributeValueMemberBOOL{Value: false},
			":accepted": &types.AttributeValueMemberS{Value: domain.SwapStatusAccepted},
			":now":      &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionalFail(err) {
		return nil, fmt.Errorf("completion already confirmed or swap not accepted: %w", domain.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}
	var s domain.Swap
	if err := attributevalue.UnmarshalMap(out.Attributes, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Finalize moves an accepted, bilaterally confirmed swap to completed. The
// condition makes the write succeed at most once per swap, which is what
// guards the completion rewards against double granting.
func (r *SwapRepo) Finalize(ctx context.Context, swapID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("swap_id", swapID),
		UpdateExpression: aws.String("SET #s = :completed, #u = :now"),
		ConditionExpression: aws.String(
			"#s = :accepted AND #pc = :t AND #rc = :t"),
		ExpressionAttributeNames: map[string]string{
			"#s":  fieldStatus,
			"#pc": fieldProposerCompleted,
			"#rc": fieldReceiverCompleted,
			"#u":  fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: domain.SwapStatusCompleted},
			":accepted":  &types.AttributeValueMemberS{Value: domain.SwapStatusAccepted},
			":t":         &types.AttributeValueMemberBOOL{Value: true},
			":now":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("swap not ready to finalize: %w", domain.ErrInvalidState)
	}
	return err
}

// ListByProposer returns swaps proposed by the user via the proposer_id GSI.
func (r *SwapRepo) ListByProposer(ctx context.Context, userID string) ([]domain.Swap, error) {
	return r.queryGSI(ctx, "proposer_id-index", "proposer_id", userID)
}

// ListByReceiver returns swaps received by the user via the receiver_id GSI.
func (r *SwapRepo) ListByReceiver(ctx context.Context, userID string) ([]domain.Swap, error) {
	return r.queryGSI(ctx, "receiver_id-index", "receiver_id", userID)
}

// ListByItem returns swaps that involve the given item on either side.
func (r *SwapRepo) ListByItem(ctx context.Context, itemID string) ([]domain.Swap, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("proposed_item_id = :id OR receiver_item_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: itemID},
		},
	})
	if err != nil {
		return nil, err
	}
	var swaps []domain.Swap
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}

func (r *SwapRepo) queryGSI(ctx context.Context, index, attr, value string) ([]domain.Swap, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	})
	if err != nil {
		return nil, err
	}
	var swaps []domain.Swap
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &swaps); err != nil {
		return nil, err
	}
	return swaps, nil
}

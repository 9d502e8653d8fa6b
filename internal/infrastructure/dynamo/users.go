package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rewear-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table.
//
// The points attribute is only ever mutated through AddPoints/DebitPoints so
// the conditional-decrement discipline lives in exactly one place.
type UserRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserRepo(client *dynamodb.Client, tableName string) *UserRepo {
	return &UserRepo{client: client, tableName: tableName}
}

func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if isConditionalFail(err) {
		return fmt.Errorf("user already exists: %w", domain.ErrConflict)
	}
	return err
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("email-index"),
		KeyConditionExpression:    aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = nowRFC3339()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// AddPoints atomically increments the user's cached balance.
func (r *UserRepo) AddPoints(ctx context.Context, userID string, amount int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("user_id", userID),
		UpdateExpression:         aws.String("SET #p = #p + :amt, #u = :now"),
		ConditionExpression:      aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames: map[string]string{"#p": fieldPoints, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt": &types.AttributeValueMemberN{Value: strconv.Itoa(amount)},
			":now": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return err
}

// DebitPoints atomically decrements the user's cached balance, but only when
// the balance covers the amount. The check and the write are a single
// conditional update so two concurrent debits can never overdraw the account.
func (r *UserRepo) DebitPoints(ctx context.Context, userID string, amount int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("user_id", userID),
		UpdateExpression:         aws.String("SET #p = #p - :amt, #u = :now"),
		ConditionExpression:      aws.String("#p >= :amt"),
		ExpressionAttributeNames: map[string]string{"#p": fieldPoints, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt": &types.AttributeValueMemberN{Value: strconv.Itoa(amount)},
			":now": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("balance below %d: %w", amount, domain.ErrInsufficientBalance)
	}
	return err
}

// ClaimFirstListingBonus flips the one-shot first-listing flag. It succeeds at
// most once per user; later calls fail the condition and return ErrConflict.
func (r *UserRepo) ClaimFirstListingBonus(ctx context.Context, userID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("user_id", userID),
		UpdateExpression:         aws.String("SET #f = :t, #u = :now"),
		ConditionExpression:      aws.String("attribute_not_exists(#f) OR #f = :f"),
		ExpressionAttributeNames: map[string]string{"#f": fieldFirstListingReward, "#u": fieldUpdatedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
	})
	if isConditionalFail(err) {
		return fmt.Errorf("first-listing bonus already claimed: %w", domain.ErrConflict)
	}
	return err
}

package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pkordes/birthdays/internal/domain"
)

// DynamoAPI is the subset of *dynamodb.Client used by the DynamoDB repo.
// Tests substitute an in-memory fake.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoOptions configures the AWS client built by NewDynamoClient.
type DynamoOptions struct {
	Region  string
	Profile string // shared config profile; empty uses the default chain
	// Endpoint overrides the service endpoint (DynamoDB Local, LocalStack).
	// When set, static dummy credentials are used.
	Endpoint string
}

// NewDynamoClient loads the AWS configuration and returns a DynamoDB client.
func NewDynamoClient(ctx context.Context, opts DynamoOptions) (*dynamodb.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("repo.NewDynamoClient: loading AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// Condition expressions guarding each write on the table's partition key.
const (
	condAbsent  = "attribute_not_exists(id)"
	condPresent = "attribute_exists(id)"
)

// dynamoBirthdayRepo is the DynamoDB implementation of BirthdayRepo.
// Items are keyed by "id"; owner lookups go through a global secondary index
// whose partition key is "userId".
type dynamoBirthdayRepo struct {
	api        DynamoAPI
	table      string
	ownerIndex string
}

// NewDynamoRepo constructs a BirthdayRepo backed by the given DynamoDB table
// and owner index.
func NewDynamoRepo(api DynamoAPI, table, ownerIndex string) BirthdayRepo {
	return &dynamoBirthdayRepo{api: api, table: table, ownerIndex: ownerIndex}
}

// Save puts the item only if no item with the same id exists.
func (r *dynamoBirthdayRepo) Save(ctx context.Context, b *domain.Birthday) error {
	if err := r.put(ctx, b, condAbsent); err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("repo.BirthdayRepo.Save: birthday already exists: %w", domain.ErrConflict)
		}
		return fmt.Errorf("repo.BirthdayRepo.Save: %w", err)
	}
	return nil
}

func (r *dynamoBirthdayRepo) FindByID(ctx context.Context, id domain.BirthdayID) (*domain.Birthday, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            keyOf(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	b, err := unmarshalBirthday(out.Item)
	if err != nil {
		return nil, fmt.Errorf("repo.BirthdayRepo.FindByID: %w", err)
	}
	return b, nil
}

// FindByOwner queries the owner index, following LastEvaluatedKey until the
// result set is exhausted.
func (r *dynamoBirthdayRepo) FindByOwner(ctx context.Context, userID string) ([]*domain.Birthday, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.ownerIndex),
		KeyConditionExpression: aws.String("userId = :userId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		},
	}

	var out []*domain.Birthday
	for {
		page, err := r.api.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
		}
		for _, item := range page.Items {
			b, err := unmarshalBirthday(item)
			if err != nil {
				return nil, fmt.Errorf("repo.BirthdayRepo.FindByOwner: %w", err)
			}
			out = append(out, b)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// Update overwrites the item only if it still exists.
func (r *dynamoBirthdayRepo) Update(ctx context.Context, b *domain.Birthday) error {
	if err := r.put(ctx, b, condPresent); err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("repo.BirthdayRepo.Update: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.BirthdayRepo.Update: %w", err)
	}
	return nil
}

// Delete removes the item only if it exists.
func (r *dynamoBirthdayRepo) Delete(ctx context.Context, id domain.BirthdayID) error {
	_, err := r.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 keyOf(id),
		ConditionExpression: aws.String(condPresent),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("repo.BirthdayRepo.Delete: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.BirthdayRepo.Delete: %w", err)
	}
	return nil
}

func (r *dynamoBirthdayRepo) put(ctx context.Context, b *domain.Birthday, condition string) error {
	item, err := attributevalue.MarshalMap(b.Record())
	if err != nil {
		return fmt.Errorf("marshaling birthday: %w", err)
	}
	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String(condition),
	})
	return err
}

func keyOf(id domain.BirthdayID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func unmarshalBirthday(item map[string]types.AttributeValue) (*domain.Birthday, error) {
	var rec domain.BirthdayRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling birthday: %w", err)
	}
	return domain.FromRecord(rec)
}

// isConditionFailed reports whether err is DynamoDB rejecting a write because
// its ConditionExpression evaluated to false.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// Package dynamodb stores file metadata in a DynamoDB table partitioned by ownerId with fileId as sort key.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"filevault/internal/config"
	"filevault/internal/model"
	"filevault/internal/repository"
)

const (
	attrOwnerID = "ownerId"
	attrFileID  = "fileId"
)

// API is the subset of the DynamoDB client used by FileDynamo.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// FileDynamo implements repository.FileRepository on DynamoDB.
// When ownerIndex is set, listing queries that secondary index instead of the base table.
type FileDynamo struct {
	client     API
	table      string
	ownerIndex string
}

var _ repository.FileRepository = (*FileDynamo)(nil)

// NewClient builds a DynamoDB client from the default AWS credential chain.
// A non-empty Endpoint targets DynamoDB Local or another compatible service.
func NewClient(ctx context.Context, cfg config.MetadataConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// NewFileDynamo creates a new FileDynamo repository.
func NewFileDynamo(client API, table, ownerIndex string) *FileDynamo {
	return &FileDynamo{client: client, table: table, ownerIndex: ownerIndex}
}

func itemKey(ownerID, fileID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrOwnerID: &types.AttributeValueMemberS{Value: ownerID},
		attrFileID:  &types.AttributeValueMemberS{Value: fileID},
	}
}

// Put writes the item, replacing any item with the same key.
func (r *FileDynamo) Put(ctx context.Context, rec *model.FileRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal file record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put file record: %w", err)
	}
	return nil
}

func (r *FileDynamo) Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            itemKey(ownerID, fileID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get file record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}

	var rec model.FileRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal file record: %w", err)
	}
	return &rec, nil
}

// ListByOwner queries every page for the owner's partition.
func (r *FileDynamo) ListByOwner(ctx context.Context, ownerID string) ([]model.FileRecord, error) {
	keyCond := expression.Key(attrOwnerID).Equal(expression.Value(ownerID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("build query expression: %w", err)
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if r.ownerIndex != "" {
		in.IndexName = aws.String(r.ownerIndex)
	}

	items := make([]model.FileRecord, 0)
	p := dynamodb.NewQueryPaginator(r.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query file records: %w", err)
		}
		var batch []model.FileRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal file records: %w", err)
		}
		items = append(items, batch...)
	}
	return items, nil
}

// Delete removes the item. DynamoDB treats deleting a missing key as success.
func (r *FileDynamo) Delete(ctx context.Context, ownerID, fileID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       itemKey(ownerID, fileID),
	})
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	return nil
}

func (r *FileDynamo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	return err
}

// Package repository implements the persistence layer: four independent
// stores over partitioned DynamoDB tables. Stores never call each other.
// Operations do not retry, do not span entities transactionally and do not
// impose internal timeouts.
package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// dynamoAPI is the minimal DynamoDB interface required by the stores.
// Defined here for testability; *dynamodb.Client satisfies it.
type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// utcNow is the clock used for server-assigned timestamps, overridable in tests.
var utcNow = func() time.Time {
	return time.Now().UTC()
}

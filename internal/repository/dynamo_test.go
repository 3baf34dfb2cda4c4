package repository

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

// fakeDynamo implements dynamoAPI for tests, recording the last input of
// each call.
type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	getErr    error
	putErr    error
	updateOut *dynamodb.UpdateItemOutput
	updateErr error
	queryOut  *dynamodb.QueryOutput
	queryErr  error
	// queryFn, when set, takes precedence over queryOut/queryErr.
	queryFn  func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scanOuts []*dynamodb.ScanOutput
	scanErr  error

	lastGetInput    *dynamodb.GetItemInput
	lastPutInput    *dynamodb.PutItemInput
	lastUpdateInput *dynamodb.UpdateItemInput
	lastQueryIn     *dynamodb.QueryInput
	lastScanIn      *dynamodb.ScanInput
	scanCalls       int
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateInput = in
	if f.updateOut != nil {
		return f.updateOut, f.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	if f.queryFn != nil {
		return f.queryFn(in)
	}
	if f.queryOut != nil {
		return f.queryOut, f.queryErr
	}
	return &dynamodb.QueryOutput{}, f.queryErr
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.lastScanIn = in
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := &dynamodb.ScanOutput{}
	if f.scanCalls < len(f.scanOuts) {
		out = f.scanOuts[f.scanCalls]
	}
	f.scanCalls++
	return out, nil
}

func strVal(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, ok := item[key]
	require.True(t, ok, "attribute %q missing", key)
	s, ok := v.(*types.AttributeValueMemberS)
	require.True(t, ok, "attribute %q is not a string", key)
	return s.Value
}

// fixClock pins the store clock for the duration of a test.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := utcNow
	utcNow = func() time.Time { return at.UTC() }
	t.Cleanup(func() { utcNow = prev })
}

func TestClassify_ResourceNotFoundIsSchemaMissing(t *testing.T) {
	err := classify("op", &types.ResourceNotFoundException{})
	require.Equal(t, ErrorSchemaMissing, err.Code)
	require.True(t, IsSchemaMissing(err))
	require.False(t, IsNotFound(err))
}

func TestClassify_OtherErrorsAreBackendUnavailable(t *testing.T) {
	cause := &types.ProvisionedThroughputExceededException{}
	err := classify("op", cause)
	require.Equal(t, ErrorBackendUnavailable, err.Code)
	require.ErrorIs(t, err, cause)
}

func TestErrorString(t *testing.T) {
	err := newError(ErrorNotFound, "session_missing", nil)
	require.Equal(t, "repository: NOT_FOUND (session_missing)", err.Error())
}

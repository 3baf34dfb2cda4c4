package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"coachmotion-backend/internal/domain"
	"coachmotion-backend/internal/ids"
)

// InsightStore holds AI-generated biomechanical snapshots, partitioned by
// session and sorted by the epoch-prefixed insight identifier. Records are
// immutable once written.
type InsightStore struct {
	api       dynamoAPI
	tableName string
}

// newInsightID is overridable in tests.
var newInsightID = func(t time.Time) string {
	return ids.NewInsightID(t)
}

func NewInsightStore(api dynamoAPI, tableName string) (*InsightStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: insight table name must not be empty")
	}
	return &InsightStore{api: api, tableName: tableName}, nil
}

// Append persists an insight. Session, client identifier and client name are
// required and validated before any write is attempted. The composite
// insight identifier is generated here; recordedAt defaults to write time
// when the upstream pipeline did not stamp one. Absent scores stay 0.
func (s *InsightStore) Append(ctx context.Context, in domain.Insight) (domain.Insight, error) {
	if strings.TrimSpace(in.SessionID) == "" {
		return domain.Insight{}, newError(ErrorInvalidArgument, "insight_session_id_required", nil)
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return domain.Insight{}, newError(ErrorInvalidArgument, "insight_client_id_required", nil)
	}
	if strings.TrimSpace(in.ClientName) == "" {
		return domain.Insight{}, newError(ErrorInvalidArgument, "insight_client_name_required", nil)
	}

	now := utcNow()
	in.InsightID = newInsightID(now)
	if in.RecordedAt == "" {
		in.RecordedAt = ids.Timestamp(now)
	}

	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return domain.Insight{}, newError(ErrorBackendUnavailable, "insight_marshal", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return domain.Insight{}, classify("insight_append", err)
	}
	return in, nil
}

// ListForSession returns every insight recorded for a session, ascending by
// insight identifier. Identifiers are epoch-prefixed, so that order is
// chronological.
func (s *InsightStore) ListForSession(ctx context.Context, sessionID string) ([]domain.Insight, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newError(ErrorInvalidArgument, "insight_session_id_required", nil)
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("sessionId = :sessionId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("insight_query", err)
	}

	insights := make([]domain.Insight, 0, len(out.Items))
	for _, item := range out.Items {
		var in domain.Insight
		if err := attributevalue.UnmarshalMap(item, &in); err != nil {
			return nil, newError(ErrorBackendUnavailable, "insight_unmarshal", err)
		}
		insights = append(insights, in)
	}
	return insights, nil
}

package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"coachmotion-backend/internal/domain"
	"coachmotion-backend/internal/ids"
)

// SessionIDIndex is the GSI projecting sessionId onto a queryable key, so a
// session can be found without knowing the owning coach. When the index is
// absent, GetBySessionID degrades to a full-table scan.
const SessionIDIndex = "sessionId-index"

// ScheduleStore is the repository of coaching sessions, partitioned by the
// owning coach and sorted by session start time.
type ScheduleStore struct {
	api       dynamoAPI
	tableName string
}

func NewScheduleStore(api dynamoAPI, tableName string) (*ScheduleStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: session table name must not be empty")
	}
	return &ScheduleStore{api: api, tableName: tableName}, nil
}

// Create writes a new session record with server-assigned createdAt and
// updatedAt, defaulting status to scheduled. The caller must guarantee
// (coachId, startsAt) uniqueness; the store does not deduplicate.
func (s *ScheduleStore) Create(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if strings.TrimSpace(sess.CoachID) == "" || strings.TrimSpace(sess.StartsAt) == "" {
		return domain.Session{}, newError(ErrorInvalidArgument, "session_key_required", nil)
	}
	if strings.TrimSpace(sess.SessionID) == "" {
		return domain.Session{}, newError(ErrorInvalidArgument, "session_id_required", nil)
	}

	if sess.Status == "" {
		sess.Status = domain.StatusScheduled
	}
	now := ids.Timestamp(utcNow())
	sess.CreatedAt = now
	sess.UpdatedAt = now

	item, err := attributevalue.MarshalMap(sess)
	if err != nil {
		return domain.Session{}, newError(ErrorBackendUnavailable, "session_marshal", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return domain.Session{}, classify("session_create", err)
	}
	return sess, nil
}

// QueryByCoach returns the coach's sessions in ascending start-time order.
// When both bounds are supplied, results are limited to [startDate, endDate]
// inclusive; an empty window returns the whole partition. Pages are followed
// via LastEvaluatedKey, so a partition larger than one query page is still
// returned whole.
func (s *ScheduleStore) QueryByCoach(ctx context.Context, coachID, startDate, endDate string) ([]domain.Session, error) {
	if strings.TrimSpace(coachID) == "" {
		return nil, newError(ErrorInvalidArgument, "coach_id_required", nil)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("coachId = :coachId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":coachId": &types.AttributeValueMemberS{Value: coachID},
		},
		ScanIndexForward: aws.Bool(true),
	}
	if startDate != "" && endDate != "" {
		in.KeyConditionExpression = aws.String("coachId = :coachId AND startsAt BETWEEN :start AND :end")
		in.ExpressionAttributeValues[":start"] = &types.AttributeValueMemberS{Value: startDate}
		in.ExpressionAttributeValues[":end"] = &types.AttributeValueMemberS{Value: endDate}
	}

	sessions := make([]domain.Session, 0)
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, classify("session_query", err)
		}
		for _, item := range out.Items {
			var sess domain.Session
			if err := attributevalue.UnmarshalMap(item, &sess); err != nil {
				return nil, newError(ErrorBackendUnavailable, "session_unmarshal", err)
			}
			sessions = append(sessions, sess)
		}
		if out.LastEvaluatedKey == nil {
			return sessions, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// GetByKey performs an exact point lookup by the composite primary key.
// Returns (nil, nil) when no record exists.
func (s *ScheduleStore) GetByKey(ctx context.Context, coachID, startsAt string) (*domain.Session, error) {
	if strings.TrimSpace(coachID) == "" || strings.TrimSpace(startsAt) == "" {
		return nil, newError(ErrorInvalidArgument, "session_key_required", nil)
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"coachId":  &types.AttributeValueMemberS{Value: coachID},
			"startsAt": &types.AttributeValueMemberS{Value: startsAt},
		},
	})
	if err != nil {
		return nil, classify("session_get", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	var sess domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return nil, newError(ErrorBackendUnavailable, "session_unmarshal", err)
	}
	return &sess, nil
}

// GetBySessionID resolves a session by its globally unique identifier.
// With a known coach it range-queries that coach's partition and searches
// linearly. Without one it queries the sessionId GSI, degrading to a
// paginated full-table scan when the index is missing. The scan is the slow
// path, intended only for cross-coach lookups such as a participant ending
// a session they did not create. Returns (nil, nil) when no match exists.
func (s *ScheduleStore) GetBySessionID(ctx context.Context, sessionID, coachID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newError(ErrorInvalidArgument, "session_id_required", nil)
	}

	if strings.TrimSpace(coachID) != "" {
		sessions, err := s.QueryByCoach(ctx, coachID, "", "")
		if err != nil {
			return nil, err
		}
		for i := range sessions {
			if sessions[i].SessionID == sessionID {
				return &sessions[i], nil
			}
		}
		return nil, nil
	}

	sess, err := s.queryBySessionIndex(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !IsSchemaMissing(err) {
		return nil, err
	}
	return s.scanBySessionID(ctx, sessionID)
}

func (s *ScheduleStore) queryBySessionIndex(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(SessionIDIndex),
		KeyConditionExpression: aws.String("sessionId = :sessionId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, classify("session_index_query", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var sess domain.Session
	if err := attributevalue.UnmarshalMap(out.Items[0], &sess); err != nil {
		return nil, newError(ErrorBackendUnavailable, "session_unmarshal", err)
	}
	return &sess, nil
}

func (s *ScheduleStore) scanBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.tableName),
			FilterExpression: aws.String("sessionId = :sessionId"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":sessionId": &types.AttributeValueMemberS{Value: sessionID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, classify("session_scan", err)
		}
		if len(out.Items) > 0 {
			var sess domain.Session
			if err := attributevalue.UnmarshalMap(out.Items[0], &sess); err != nil {
				return nil, newError(ErrorBackendUnavailable, "session_unmarshal", err)
			}
			return &sess, nil
		}
		startKey = out.LastEvaluatedKey
		if startKey == nil {
			return nil, nil
		}
	}
}

// UpdateStatus transitions a session's status. Only the owning coach may
// transition; the ownership check is check-then-act and therefore racy under
// concurrent calls, which is acceptable because the write is idempotent.
func (s *ScheduleStore) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus, requestingUserID string) (domain.Session, error) {
	if !domain.ValidStatus(status) {
		return domain.Session{}, newError(ErrorInvalidArgument, "session_status_unknown", nil)
	}

	sess, err := s.GetBySessionID(ctx, sessionID, "")
	if err != nil {
		return domain.Session{}, err
	}
	if sess == nil {
		return domain.Session{}, newError(ErrorNotFound, "session_missing", nil)
	}
	if sess.CoachID != requestingUserID {
		return domain.Session{}, newError(ErrorForbidden, "session_not_owner", nil)
	}

	updatedAt := ids.Timestamp(utcNow())
	if _, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"coachId":  &types.AttributeValueMemberS{Value: sess.CoachID},
			"startsAt": &types.AttributeValueMemberS{Value: sess.StartsAt},
		},
		// "status" is a DynamoDB reserved word.
		UpdateExpression: aws.String("SET #status = :status, updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":updatedAt": &types.AttributeValueMemberS{Value: updatedAt},
		},
	}); err != nil {
		return domain.Session{}, classify("session_update_status", err)
	}

	sess.Status = status
	sess.UpdatedAt = updatedAt
	return *sess, nil
}

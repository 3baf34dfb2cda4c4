package repository

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"coachmotion-backend/internal/domain"
	"coachmotion-backend/internal/ids"
)

// ChatStore is the append-only transcript log, partitioned by session and
// sorted by server-assigned message timestamp. There is no update or delete
// path; retention is out of scope.
type ChatStore struct {
	api       dynamoAPI
	tableName string
}

// newMessageID is overridable in tests.
var newMessageID = ids.NewToken

func NewChatStore(api dynamoAPI, tableName string) (*ChatStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: message table name must not be empty")
	}
	return &ChatStore{api: api, tableName: tableName}, nil
}

// Append persists a message, assigning the sort-key timestamp and message
// identifier server-side. Any client-supplied SentAt or MessageID is
// discarded. Message-type validation is the caller's responsibility.
func (s *ChatStore) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if strings.TrimSpace(msg.SessionID) == "" {
		return domain.ChatMessage{}, newError(ErrorInvalidArgument, "message_session_id_required", nil)
	}
	if strings.TrimSpace(msg.SenderID) == "" {
		return domain.ChatMessage{}, newError(ErrorInvalidArgument, "message_sender_id_required", nil)
	}

	msg.SentAt = ids.MessageTimestamp(utcNow())
	msg.MessageID = newMessageID()

	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return domain.ChatMessage{}, newError(ErrorBackendUnavailable, "message_marshal", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return domain.ChatMessage{}, classify("message_append", err)
	}
	return msg, nil
}

// ListAll returns the full transcript for a session in ascending
// chronological order. Results are re-sorted client-side after retrieval so
// the ordering contract holds even if the backend returns them unordered.
func (s *ChatStore) ListAll(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	return s.query(ctx, sessionID, true, 0)
}

// ListRecent returns the most recent limit messages, reversed back to
// chronological order so callers see the same ordering contract as ListAll
// for the truncated window.
func (s *ChatStore) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, newError(ErrorInvalidArgument, "message_limit_positive", nil)
	}
	if limit > math.MaxInt32 {
		return nil, newError(ErrorInvalidArgument, "message_limit_too_large", nil)
	}
	msgs, err := s.query(ctx, sessionID, false, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// query follows LastEvaluatedKey so a transcript spanning multiple pages is
// returned whole. With a limit it stops once that many messages are
// collected, shrinking the per-page limit to the remainder.
func (s *ChatStore) query(ctx context.Context, sessionID string, forward bool, limit int) ([]domain.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newError(ErrorInvalidArgument, "message_session_id_required", nil)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("sessionId = :sessionId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
		ScanIndexForward: aws.Bool(forward),
	}

	msgs := make([]domain.ChatMessage, 0)
	for {
		if limit > 0 {
			in.Limit = aws.Int32(int32(limit - len(msgs)))
		}
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, classify("message_query", err)
		}
		for _, item := range out.Items {
			var msg domain.ChatMessage
			if err := attributevalue.UnmarshalMap(item, &msg); err != nil {
				return nil, newError(ErrorBackendUnavailable, "message_unmarshal", err)
			}
			msgs = append(msgs, msg)
		}
		if limit > 0 && len(msgs) >= limit {
			break
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if forward {
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].SentAt < msgs[j].SentAt })
	}
	return msgs, nil
}

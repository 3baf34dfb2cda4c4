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

// ProfileStore is the point-keyed repository for user profile records.
// The table has a simple primary key: userId.
type ProfileStore struct {
	api       dynamoAPI
	tableName string
}

func NewProfileStore(api dynamoAPI, tableName string) (*ProfileStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: profile table name must not be empty")
	}
	return &ProfileStore{api: api, tableName: tableName}, nil
}

// Save writes the profile with upsert semantics: an existing record for the
// same user identifier is overwritten without a version check. CreatedAt is
// preserved when already set, otherwise both timestamps are assigned now.
func (s *ProfileStore) Save(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return domain.Profile{}, newError(ErrorInvalidArgument, "profile_user_id_required", nil)
	}

	now := ids.Timestamp(utcNow())
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return domain.Profile{}, newError(ErrorBackendUnavailable, "profile_marshal", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return domain.Profile{}, classify("profile_save", err)
	}
	return p, nil
}

// Get returns the profile for userID, or (nil, nil) when no record exists.
// Absence is not an error; Get never writes.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, newError(ErrorInvalidArgument, "profile_user_id_required", nil)
	}

	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, classify("profile_get", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, newError(ErrorBackendUnavailable, "profile_unmarshal", err)
	}
	return &p, nil
}

// Update applies a partial update touching only the supplied fields plus
// updatedAt. It fails with NOT_FOUND when no record exists for the key:
// partial state must never be created by an update. UserID and CreatedAt
// are never modified.
func (s *ProfileStore) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Profile{}, newError(ErrorInvalidArgument, "profile_user_id_required", nil)
	}
	if u.Empty() {
		return domain.Profile{}, newError(ErrorInvalidArgument, "profile_update_empty", nil)
	}

	expr := "SET updatedAt = :updatedAt"
	values := map[string]types.AttributeValue{
		":updatedAt": &types.AttributeValueMemberS{Value: ids.Timestamp(utcNow())},
	}
	if u.Email != nil {
		expr += ", email = :email"
		values[":email"] = &types.AttributeValueMemberS{Value: *u.Email}
	}
	if u.FullName != nil {
		expr += ", fullName = :fullName"
		values[":fullName"] = &types.AttributeValueMemberS{Value: *u.FullName}
	}
	if u.PracticeName != nil {
		expr += ", practiceName = :practiceName"
		values[":practiceName"] = &types.AttributeValueMemberS{Value: *u.PracticeName}
	}

	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(userId)"),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.Profile{}, newError(ErrorNotFound, "profile_missing", err)
		}
		return domain.Profile{}, classify("profile_update", err)
	}

	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Attributes, &p); err != nil {
		return domain.Profile{}, newError(ErrorBackendUnavailable, "profile_unmarshal", err)
	}
	return p, nil
}

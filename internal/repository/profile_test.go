package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"coachmotion-backend/internal/domain"
)

func mustProfileStore(t *testing.T, db *fakeDynamo) *ProfileStore {
	t.Helper()
	s, err := NewProfileStore(db, "profiles-test")
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }

func TestNewProfileStore_Validation(t *testing.T) {
	_, err := NewProfileStore(nil, "profiles-test")
	require.Error(t, err)
	_, err = NewProfileStore(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestProfileSave_AssignsEqualTimestampsOnFirstWrite(t *testing.T) {
	fixClock(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	db := &fakeDynamo{}
	s := mustProfileStore(t, db)

	saved, err := s.Save(context.Background(), domain.Profile{
		UserID:   "coach-1",
		Email:    "dana@example.com",
		FullName: "Dana Wells",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-03-14T10:00:00Z", saved.CreatedAt)
	require.Equal(t, saved.CreatedAt, saved.UpdatedAt)
	require.Equal(t, "coach-1", strVal(t, db.lastPutInput.Item, "userId"))
	require.Nil(t, db.lastPutInput.ConditionExpression, "save must upsert, not condition on absence")
}

func TestProfileSave_PreservesExistingCreatedAt(t *testing.T) {
	fixClock(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	s := mustProfileStore(t, &fakeDynamo{})

	saved, err := s.Save(context.Background(), domain.Profile{
		UserID:    "coach-1",
		CreatedAt: "2026-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-01-01T00:00:00Z", saved.CreatedAt)
	require.Equal(t, "2026-03-14T10:00:00Z", saved.UpdatedAt)
}

func TestProfileSave_RequiresUserID(t *testing.T) {
	s := mustProfileStore(t, &fakeDynamo{})
	_, err := s.Save(context.Background(), domain.Profile{})
	require.True(t, IsInvalidArgument(err))
}

func TestProfileSave_BackendError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("throttled")}
	s := mustProfileStore(t, db)
	_, err := s.Save(context.Background(), domain.Profile{UserID: "coach-1"})
	var re *Error
	require.ErrorAs(t, err, &re)
	require.Equal(t, ErrorBackendUnavailable, re.Code)
}

func TestProfileGet_AbsentIsNilNotError(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	s := mustProfileStore(t, db)
	p, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestProfileGet_ReturnsRecord(t *testing.T) {
	item, err := attributevalue.MarshalMap(domain.Profile{
		UserID:    "coach-1",
		Email:     "dana@example.com",
		CreatedAt: "2026-03-14T10:00:00Z",
		UpdatedAt: "2026-03-14T10:00:00Z",
	})
	require.NoError(t, err)
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	s := mustProfileStore(t, db)

	p, err := s.Get(context.Background(), "coach-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "dana@example.com", p.Email)
	require.Equal(t, p.CreatedAt, p.UpdatedAt)
	require.Equal(t, "coach-1", strVal(t, db.lastGetInput.Key, "userId"))
}

func TestProfileGet_MissingTableIsSchemaMissing(t *testing.T) {
	db := &fakeDynamo{getErr: &types.ResourceNotFoundException{}}
	s := mustProfileStore(t, db)
	_, err := s.Get(context.Background(), "coach-1")
	require.True(t, IsSchemaMissing(err))
}

func TestProfileUpdate_TouchesOnlySuppliedFields(t *testing.T) {
	fixClock(t, time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	attrs, err := attributevalue.MarshalMap(domain.Profile{
		UserID:       "coach-1",
		Email:        "dana@example.com",
		PracticeName: "Wells Movement",
		CreatedAt:    "2026-01-01T00:00:00Z",
		UpdatedAt:    "2026-03-14T11:00:00Z",
	})
	require.NoError(t, err)
	db := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{Attributes: attrs}}
	s := mustProfileStore(t, db)

	p, err := s.Update(context.Background(), "coach-1", domain.ProfileUpdate{
		PracticeName: strPtr("Wells Movement"),
	})
	require.NoError(t, err)
	require.Equal(t, "Wells Movement", p.PracticeName)

	in := db.lastUpdateInput
	require.Equal(t, "SET updatedAt = :updatedAt, practiceName = :practiceName", *in.UpdateExpression)
	require.Equal(t, "attribute_exists(userId)", *in.ConditionExpression)
	require.NotContains(t, *in.UpdateExpression, "email")
	require.NotContains(t, *in.UpdateExpression, "createdAt")
	require.NotContains(t, *in.UpdateExpression, "userId")
}

func TestProfileUpdate_MissingRecordIsNotFound(t *testing.T) {
	db := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	s := mustProfileStore(t, db)
	_, err := s.Update(context.Background(), "ghost", domain.ProfileUpdate{Email: strPtr("x@example.com")})
	require.True(t, IsNotFound(err))
	require.False(t, IsSchemaMissing(err))
}

func TestProfileUpdate_EmptyUpdateRejected(t *testing.T) {
	s := mustProfileStore(t, &fakeDynamo{})
	_, err := s.Update(context.Background(), "coach-1", domain.ProfileUpdate{})
	require.True(t, IsInvalidArgument(err))
}

func TestProfileUpdate_AllFields(t *testing.T) {
	attrs, err := attributevalue.MarshalMap(domain.Profile{UserID: "coach-1"})
	require.NoError(t, err)
	db := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{Attributes: attrs}}
	s := mustProfileStore(t, db)

	_, err = s.Update(context.Background(), "coach-1", domain.ProfileUpdate{
		Email:        strPtr("new@example.com"),
		FullName:     strPtr("Dana W."),
		PracticeName: strPtr("Studio"),
	})
	require.NoError(t, err)
	expr := *db.lastUpdateInput.UpdateExpression
	require.Contains(t, expr, "email = :email")
	require.Contains(t, expr, "fullName = :fullName")
	require.Contains(t, expr, "practiceName = :practiceName")
}

package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	out    *ssm.GetParameterOutput
	err    error
	lastIn *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.out, f.err
}

func paramOut(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: &value}}
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeSSM{out: paramOut("secret-value")}
	c, err := New(api)
	require.NoError(t, err)

	got, err := c.GetParameter(context.Background(), " /coachmotion/session-secret ")
	require.NoError(t, err)
	require.Equal(t, "secret-value", got)
	require.Equal(t, "/coachmotion/session-secret", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestGetParameter_SSMError(t *testing.T) {
	c, err := New(&fakeSSM{err: errors.New("throttled")})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "get parameter")
}

func TestGetParameter_MissingValue(t *testing.T) {
	c, err := New(&fakeSSM{out: &ssm.GetParameterOutput{}})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/name")
	require.Error(t, err)
}

type stubGetter struct {
	value string
	err   error
}

func (s *stubGetter) GetParameter(context.Context, string) (string, error) {
	return s.value, s.err
}

func TestGetSecretToken_HappyPath(t *testing.T) {
	tok, err := GetSecretToken(context.Background(), &stubGetter{value: `{"token":"abc123"}`}, "/coachmotion/rooms-api-key")
	require.NoError(t, err)
	require.Equal(t, "abc123", tok)
}

func TestGetSecretToken_RejectsMalformedPayload(t *testing.T) {
	_, err := GetSecretToken(context.Background(), &stubGetter{value: "not-json"}, "/name")
	require.Error(t, err)

	_, err = GetSecretToken(context.Background(), &stubGetter{value: `{"token":""}`}, "/name")
	require.Error(t, err)
}

func TestGetSecretToken_NilGetterAndEmptyName(t *testing.T) {
	_, err := GetSecretToken(context.Background(), nil, "/name")
	require.Error(t, err)
	_, err = GetSecretToken(context.Background(), &stubGetter{}, " ")
	require.Error(t, err)
}

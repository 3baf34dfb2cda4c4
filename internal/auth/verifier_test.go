package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubParams struct {
	value string
	err   error
	calls int
}

func (s *stubParams) GetParameter(context.Context, string) (string, error) {
	s.calls++
	return s.value, s.err
}

func mustVerifier(t *testing.T) (*Verifier, []byte) {
	t.Helper()
	secret := []byte("test-signing-secret")
	v, err := NewVerifier(&stubParams{value: `{"token":"test-signing-secret"}`}, "/coachmotion/session-secret")
	require.NoError(t, err)
	return v, secret
}

func TestNewVerifier_Validation(t *testing.T) {
	_, err := NewVerifier(nil, "/name")
	require.Error(t, err)
	_, err = NewVerifier(&stubParams{}, " ")
	require.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	v, secret := mustVerifier(t)
	token, err := SignToken(secret, Identity{UserID: "coach-1", Email: "dana@example.com", FullName: "Dana Wells"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "coach-1", id.UserID)
	require.Equal(t, "dana@example.com", id.Email)
}

func TestVerify_RejectsTamperedToken(t *testing.T) {
	v, secret := mustVerifier(t)
	token, err := SignToken(secret, Identity{UserID: "coach-1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token+"x")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	v, _ := mustVerifier(t)
	token, err := SignToken([]byte("other-secret"), Identity{UserID: "coach-1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	v, secret := mustVerifier(t)
	token, err := SignToken(secret, Identity{UserID: "coach-1"}, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerify_RejectsGarbage(t *testing.T) {
	v, _ := mustVerifier(t)
	for _, tok := range []string{"", "justonepart", "a.b.c", "!!!.???"} {
		_, err := v.Verify(context.Background(), tok)
		require.ErrorIs(t, err, ErrUnauthenticated, "token %q", tok)
	}
}

func TestVerify_SecretFetchedOnceAndCached(t *testing.T) {
	params := &stubParams{value: `{"token":"s"}`}
	v, err := NewVerifier(params, "/name")
	require.NoError(t, err)

	token, err := SignToken([]byte("s"), Identity{UserID: "u1"}, time.Time{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
	}
	require.Equal(t, 1, params.calls)
}

func TestVerify_SecretFetchFailure(t *testing.T) {
	v, err := NewVerifier(&stubParams{err: errors.New("ssm down")}, "/name")
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "a.b")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthenticated)
}

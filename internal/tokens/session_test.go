package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-session-secret")

func TestSignSession_RoundTrip(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(48 * time.Hour)
	tok, err := SignSession(42, "Alice", exp, testSecret)
	require.NoError(t, err)

	claims, err := SessionClaimsFromToken(tok, testSecret)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "Alice", claims.Name)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestSessionClaimsFromToken_Rejects(t *testing.T) {
	t.Parallel()

	expired, err := SignSession(1, "Alice", time.Now().Add(-time.Minute), testSecret)
	require.NoError(t, err)
	_, err = SessionClaimsFromToken(expired, testSecret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := SignSession(1, "Alice", time.Now().Add(time.Hour), testSecret)
	require.NoError(t, err)
	_, err = SessionClaimsFromToken(valid, []byte("other-secret"))
	assert.Error(t, err)

	_, err = SessionClaimsFromToken("garbage", testSecret)
	assert.Error(t, err)
}

func TestSessionClaims_UserID_Invalid(t *testing.T) {
	t.Parallel()

	c := &SessionClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}
	_, err := c.UserID()
	assert.Error(t, err)

	c.Subject = "0"
	_, err = c.UserID()
	assert.Error(t, err)
}

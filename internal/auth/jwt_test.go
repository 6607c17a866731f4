package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_IssueAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", "fixa-admin", time.Hour)

	token, exp, err := m.Issue("uid-1", "ana@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	uid, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("test-secret", "fixa-admin", time.Hour)

	otherSecret, _, err := NewJWTManager("other", "fixa-admin", time.Hour).Issue("uid-1", "")
	require.NoError(t, err)
	otherIssuer, _, err := NewJWTManager("test-secret", "someone-else", time.Hour).Issue("uid-1", "")
	require.NoError(t, err)
	expired, _, err := NewJWTManager("test-secret", "fixa-admin", -time.Minute).Issue("uid-1", "")
	require.NoError(t, err)
	noSubject, _, err := m.Issue("", "")
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "uid-1", Issuer: "fixa-admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(token)
			assert.Error(t, err)
		})
	}
}

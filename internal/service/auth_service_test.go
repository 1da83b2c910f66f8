package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smd-syllabus-api/internal/models"
	appErrors "github.com/noah-isme/smd-syllabus-api/pkg/errors"
)

func newAuth(issuer string) *AuthService {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: issuer})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := newAuth("smd-idp")

	token, expiresAt, err := svc.IssueToken(hod, "hod@uni.edu.vn", "Head of Department", 0)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), expiresAt)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, hod, claims.Identity())
	assert.Equal(t, "hod@uni.edu.vn", claims.Email)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newAuth("smd-idp")

	expired, _, err := svc.IssueToken(owner, "", "", time.Minute)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	_, err = svc.ValidateToken(expired)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := newAuth("someone-else")
	foreign, _, err := other.IssueToken(owner, "", "", 0)
	require.NoError(t, err)
	_, err = newAuth("smd-idp").ValidateToken(foreign)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongSecret := NewAuthService(nil, AuthConfig{AccessTokenSecret: "other", Issuer: "smd-idp"})
	wrongSecret.now = func() time.Time { return fixedNow }
	forged, _, err := wrongSecret.IssueToken(admin, "", "", 0)
	require.NoError(t, err)
	_, err = newAuth("smd-idp").ValidateToken(forged)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = newAuth("").ValidateToken("not-a-token")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRequiresKnownRole(t *testing.T) {
	svc := newAuth("")
	claims := &models.JWTClaims{
		UserID: "u-1",
		Role:   "JANITOR",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	claims.Role = "lecturer"
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	parsed, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, models.RoleLecturer, parsed.Role)

	_, _, err = svc.IssueToken(models.Identity{UserID: "u-1", Role: "JANITOR"}, "", "", 0)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

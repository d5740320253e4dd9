package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
	"credledger/pkg/requestcontext"
)

var caller = domain.MustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

func newService(ttl time.Duration) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", "test-audience", ttl)
}

func Test_GenerateCallerToken(t *testing.T) {
	svc := newService(time.Minute)
	token, jti, err := svc.GenerateCallerToken(context.Background(), caller)
	require.NoError(t, err)
	require.NotEmpty(t, jti)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller.String(), claims.Subject, "subject keeps the address as given")
	assert.Equal(t, jti, claims.ID)
}

func Test_GenerateCallerToken_RejectsEmptyCaller(t *testing.T) {
	_, _, err := newService(time.Minute).GenerateCallerToken(context.Background(), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(time.Minute).ValidateToken("invalid-token-string")
	require.ErrorContains(t, err, "invalid token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newService(time.Minute)
	ctx := requestcontext.WithTime(context.Background(), time.Now().Add(-time.Hour))
	token, _, err := svc.GenerateCallerToken(ctx, caller)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorContains(t, err, "token expired")
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-signing-key", "someone-else", "test-audience", time.Minute)
	token, _, err := other.GenerateCallerToken(context.Background(), caller)
	require.NoError(t, err)

	_, err = newService(time.Minute).ValidateToken(token)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.String(),
			Issuer:    "test-issuer",
			Audience:  []string{"test-audience"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService(time.Minute).ValidateToken(unsigned)
	require.Error(t, err)
}

func Test_Adapter(t *testing.T) {
	svc := newService(time.Minute)
	token, jti, err := svc.GenerateCallerToken(context.Background(), caller)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller.String(), claims.Subject)
	assert.Equal(t, jti, claims.JTI)
}

package service

import (
	"testing"
	"time"

	"relief-token-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTTokenService_RoundTrip(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "relief-token-ledger")

	token, expiresAt, err := svc.Generate("wlt_citizen_7", domain.RoleCitizen)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "wlt_citizen_7", claims.Actor)
	assert.Equal(t, domain.RoleCitizen, claims.Role)
}

func TestJWTTokenService_WrongSecret(t *testing.T) {
	issuer := NewJWTTokenService("secret-a", time.Hour, "relief-token-ledger")
	verifier := NewJWTTokenService("secret-b", time.Hour, "relief-token-ledger")

	token, _, err := issuer.Generate("wlt_admin", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Expired(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", -time.Minute, "relief-token-ledger")

	token, _, err := svc.Generate("wlt_admin", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_UnknownRole(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "relief-token-ledger")

	token, _, err := svc.Generate("wlt_x", domain.Role("superuser"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestJWTTokenService_Garbage(t *testing.T) {
	svc := NewJWTTokenService("test-secret-key", time.Hour, "relief-token-ledger")
	_, err := svc.Validate("not.a.token")
	assert.Error(t, err)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	org := int64(7)
	token, err := GenerateToken("  Alice@X.com ", &org)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice@x.com", claims.Identity)
	require.NotNil(t, claims.OrganizationID)
	require.Equal(t, org, *claims.OrganizationID)
}

func TestTokenWithoutOrganization(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateToken("bob@x.com", nil)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Nil(t, claims.OrganizationID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	InitJWT("first-secret")
	token, err := GenerateToken("alice@x.com", nil)
	require.NoError(t, err)

	InitJWT("second-secret")
	_, err = ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	InitJWT("test-secret")

	_, err := ValidateToken("not-a-token")
	require.Error(t, err)
}

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestToken(t *testing.T) {
	keyring.MockInit()
	t.Setenv(TokenEnvVar, "")

	_, err := GetToken()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SaveToken(" gho_test "))
	token, err := GetToken()
	require.NoError(t, err)
	assert.Equal(t, "gho_test", token)

	require.NoError(t, DeleteToken())
	_, err = GetToken()
	assert.ErrorIs(t, err, ErrNoToken)

	// deleting twice is fine
	assert.NoError(t, DeleteToken())
}

func TestToken_EnvOverride(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, SaveToken("stored"))
	t.Setenv(TokenEnvVar, "from-env")

	token, err := GetToken()
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)
}

func TestSaveToken_Empty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SaveToken("  "))
}

package keys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Initialize(t *testing.T) {
	m := NewManager()
	err := m.Initialize("leaf", nil)
	require.NoError(t, err)

	assert.Equal(t, "leaf-key-1", m.KeyID())

	jwk := m.PublicJWK()
	require.NotNil(t, jwk)

	kid, ok := jwk.KeyID()
	require.True(t, ok)
	assert.Equal(t, "leaf-key-1", kid)

	alg, ok := jwk.Algorithm()
	require.True(t, ok)
	assert.Equal(t, "RS256", alg.String())
}

func TestManager_Sign_RequiresInitialize(t *testing.T) {
	m := NewManager()
	_, err := m.Sign(make([]byte, 32))
	assert.Error(t, err)
}

func TestManager_Sign_ProducesSignature(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Initialize("rp", nil))

	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(i)
	}

	sig, err := m.Sign(digest)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestManager_PublicJWKNeverExposesPrivateKey(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Initialize("anchor", nil))

	raw, err := m.PublicJWK().AsMap(context.Background())
	require.NoError(t, err)

	_, hasD := raw["d"]
	assert.False(t, hasD, "public JWK must not contain the private exponent")
}

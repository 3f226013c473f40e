package auth_test

import (
	"os"
	"path/filepath"
	"testing"

	auth "github.com/furfightclub/ffc-auth-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyFiles(t *testing.T) (dir string) {
	t.Helper()
	priv, other := signingKeys(t)
	dir = t.TempDir()

	pub, err := auth.EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)
	otherPub, err := auth.EncodePublicKeyPEM(&other.PublicKey)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "private.pem"), auth.EncodePrivateKeyPEM(priv), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.pem"), pub, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "peer.pem"), otherPub, 0o644))
	return dir
}

func TestLoadKeySet(t *testing.T) {
	dir := writeKeyFiles(t)
	priv, other := signingKeys(t)

	t.Run("private key only", func(t *testing.T) {
		keys, err := auth.LoadKeySet(auth.KeyPaths{PrivateKey: filepath.Join(dir, "private.pem")})
		require.NoError(t, err)

		assert.True(t, keys.Signing.Equal(priv))
		assert.True(t, keys.UserVerify.Equal(&priv.PublicKey))
		assert.True(t, keys.ServiceVerify.Equal(&priv.PublicKey))
		assert.Len(t, keys.SigningKID, 16)
	})

	t.Run("separate service key", func(t *testing.T) {
		keys, err := auth.LoadKeySet(auth.KeyPaths{
			PrivateKey:       filepath.Join(dir, "private.pem"),
			PublicKey:        filepath.Join(dir, "public.pem"),
			ServicePublicKey: filepath.Join(dir, "peer.pem"),
		})
		require.NoError(t, err)

		assert.True(t, keys.UserVerify.Equal(&priv.PublicKey))
		assert.True(t, keys.ServiceVerify.Equal(&other.PublicKey))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := auth.LoadKeySet(auth.KeyPaths{})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := auth.LoadKeySet(auth.KeyPaths{PrivateKey: filepath.Join(dir, "nope.pem")})
		assert.Error(t, err)
	})

	t.Run("public key as private key", func(t *testing.T) {
		_, err := auth.LoadKeySet(auth.KeyPaths{PrivateKey: filepath.Join(dir, "public.pem")})
		assert.Error(t, err)
	})
}

func TestKeyID_Stable(t *testing.T) {
	priv, other := signingKeys(t)

	a, err := auth.KeyID(&priv.PublicKey)
	require.NoError(t, err)
	b, err := auth.KeyID(&priv.PublicKey)
	require.NoError(t, err)
	c, err := auth.KeyID(&other.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

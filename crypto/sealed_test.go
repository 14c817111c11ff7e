package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundtrip(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal([]byte("hello bob"), bob.Public, alice.Private)
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "hello bob")

	opened, err := Open(sealed, alice.Public, bob.Private)
	require.NoError(t, err)
	require.Equal(t, []byte("hello bob"), opened)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal([]byte("hello bob"), bob.Public, alice.Private)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = Open(sealed, alice.Public, bob.Private)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestOpenRejectsWrongRecipient(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)
	eve, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal([]byte("hello bob"), bob.Public, alice.Private)
	require.NoError(t, err)

	_, err = Open(sealed, alice.Public, eve.Private)
	require.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = Open(sealed[:10], alice.Public, bob.Private)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestParsePublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(kp.PublicKeyString())
	require.NoError(t, err)
	require.Equal(t, kp.Public, parsed)

	_, err = ParsePublicKey("not-hex")
	require.Error(t, err)

	_, err = ParsePublicKey("abcd")
	require.Error(t, err)
}

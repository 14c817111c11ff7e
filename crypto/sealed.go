// Package crypto implements the client-side sealing used for message
// payloads. The server and the cascade treat ciphertext as opaque bytes;
// only clients hold the keys produced here.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/box"
)

const (
	PublicKeySize  = 32
	PrivateKeySize = 32
	NonceSize      = 24
)

var ErrDecryptionFailed = errors.New("decryption failed")

// KeyPair holds an X25519 key pair.
type KeyPair struct {
	Public  *[PublicKeySize]byte
	Private *[PrivateKeySize]byte
}

// GenerateKeyPair creates a new X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	public, private, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: public, Private: private}, nil
}

// PublicKeyString returns the hex encoding of the public key, the format
// published through the key directory.
func (kp *KeyPair) PublicKeyString() string {
	return hex.EncodeToString(kp.Public[:])
}

// ParsePublicKey decodes a hex-encoded public key as published through the
// key directory.
func ParsePublicKey(s string) (*[PublicKeySize]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("invalid public key length %d", len(raw))
	}
	var key [PublicKeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Seal encrypts plaintext for the recipient. The random nonce is prepended
// to the box; overhead is NonceSize+box.Overhead bytes.
func Seal(plaintext []byte, recipient *[PublicKeySize]byte, sender *[PrivateKeySize]byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return box.Seal(nonce[:], plaintext, &nonce, recipient, sender), nil
}

// Open decrypts ciphertext produced by Seal.
func Open(ciphertext []byte, sender *[PublicKeySize]byte, recipient *[PrivateKeySize]byte) ([]byte, error) {
	if len(ciphertext) < NonceSize+box.Overhead {
		return nil, ErrDecryptionFailed
	}
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := box.Open(nil, ciphertext[NonceSize:], &nonce, sender, recipient)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

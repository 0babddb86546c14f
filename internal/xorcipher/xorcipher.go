// Package xorcipher implements the repeating-key XOR stream transform used to
// obscure the database file. It is obfuscation only: there is no integrity
// check and no nonce, so equal inputs always produce equal outputs.
package xorcipher

import (
	"encoding/base64"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidKey is returned by New when the key is empty.
	ErrInvalidKey = errors.New("cipher key must not be empty")
	// ErrDecode is returned by Decrypt when the input is not valid base64.
	ErrDecode = errors.New("ciphertext is not valid base64")
)

// Cipher XORs data with a key that repeats over the length of the input.
// A Cipher holds no mutable state and is safe for concurrent use.
type Cipher struct {
	key []byte
}

// New returns a Cipher for key. The key is copied.
func New(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Cipher{key: k}, nil
}

// XOR applies the raw transform. Applying it twice returns the input.
func (c *Cipher) XOR(data []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ c.key[i%len(c.key)]
	}
	return out
}

// Encrypt XORs plaintext and encodes the result as standard base64.
func (c *Cipher) Encrypt(plaintext []byte) string {
	return base64.StdEncoding.EncodeToString(c.XOR(plaintext))
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(text string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return c.XOR(raw), nil
}

package jsondb

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2KeyLength = 32

// KeyDeriver turns a passphrase into cipher key bytes. It must be
// deterministic, or a database could never be reopened. Open zeroes the
// returned slice once the cipher holds its own copy.
type KeyDeriver func(passphrase []byte) ([]byte, error)

// LegacyKey is the default deriver: the key is the standard base64 encoding
// of the passphrase. It adds no entropy and can be reversed, which keeps
// files compatible with existing databases.
func LegacyKey(passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrInvalidKey
	}
	key := make([]byte, base64.StdEncoding.EncodedLen(len(passphrase)))
	base64.StdEncoding.Encode(key, passphrase)
	return key, nil
}

// PBKDF2Key returns a deriver that stretches the passphrase with
// PBKDF2-SHA256. Files written with it cannot be read with LegacyKey. The
// output is still only XORed over the data, so this slows down passphrase
// guessing but does not make the format authenticated.
func PBKDF2Key(salt []byte, iterations int) KeyDeriver {
	s := make([]byte, len(salt))
	copy(s, salt)
	return func(passphrase []byte) ([]byte, error) {
		if len(passphrase) == 0 {
			return nil, ErrInvalidKey
		}
		if len(s) == 0 {
			return nil, errors.New("pbkdf2 salt is empty")
		}
		if iterations < 1 {
			return nil, errors.Errorf("invalid pbkdf2 iteration count %d", iterations)
		}
		return pbkdf2.Key(passphrase, s, iterations, pbkdf2KeyLength, sha256.New), nil
	}
}

func clearSensitiveData(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

package jsondb

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyKey(t *testing.T) {
	key, err := LegacyKey([]byte("123456"))
	require.NoError(t, err)
	assert.Equal(t, "MTIzNDU2", string(key))

	_, err = LegacyKey(nil)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestPBKDF2Key(t *testing.T) {
	d := PBKDF2Key([]byte("salt"), 10)

	a, err := d([]byte("pw"))
	require.NoError(t, err)
	assert.Len(t, a, pbkdf2KeyLength)

	b, err := d([]byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := d([]byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = d(nil)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestPBKDF2KeyInvalidParameters(t *testing.T) {
	_, err := PBKDF2Key(nil, 10)([]byte("pw"))
	assert.Error(t, err)

	_, err = PBKDF2Key([]byte("salt"), 0)([]byte("pw"))
	assert.Error(t, err)
}

func TestClearSensitiveData(t *testing.T) {
	b := []byte("secret")
	clearSensitiveData(b)
	assert.Equal(t, make([]byte, 6), b)
}

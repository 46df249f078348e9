package credentials

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

// cheap parameters keep the tests fast
func testHasher() *Argon2 {
	return &Argon2{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestHashEncodesPHC(t *testing.T) {
	h := testHasher()
	encoded, err := h.Hash("s3cretpass")
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 6)
	assert.Equal(t, "argon2id", parts[1])
	assert.Equal(t, fmt.Sprintf("v=%d", argon2.Version), parts[2])
	assert.Equal(t, "m=1024,t=1,p=1", parts[3])

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	require.NoError(t, err)
	assert.Len(t, salt, 16)
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	require.NoError(t, err)
	assert.Len(t, key, 32)

	assert.Equal(t, argon2.IDKey([]byte("s3cretpass"), salt, 1, 1024, 1, 32), key)
	assert.NotEqual(t, argon2.IDKey([]byte("wrong"), salt, 1, 1024, 1, 32), key)
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewArgon2Defaults(t *testing.T) {
	encoded, err := NewArgon2().Hash("pw")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$m=65536,t=3,p=2$")
}

package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"))

	assert.True(t, Verify("password123", encoded))
	assert.False(t, Verify("password124", encoded))
	assert.False(t, Verify("password123", "plain"))
	assert.False(t, Verify("password123", "$argon2id$v=18$m=1,t=1,p=1$AAAA$AAAA"))

	other, err := Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salts differ")
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate("abc"), ErrTooShort)
	assert.ErrorIs(t, Validate("   abcde "), ErrTooShort)
	assert.NoError(t, Validate("abcdef"))
}

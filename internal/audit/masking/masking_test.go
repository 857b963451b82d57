package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("icpassword6789"))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"username": "saraipani_op",
		"password": "password123",
		"nested":   map[string]any{"session_token": "abcdefgh"},
		"count":    3,
	})
	assert.Equal(t, "saraipani_op", out["username"])
	assert.Equal(t, "****d123", out["password"])
	assert.Equal(t, "****efgh", out["nested"].(map[string]any)["session_token"])
	assert.Equal(t, 3, out["count"])
}

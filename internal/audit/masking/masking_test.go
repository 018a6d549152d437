package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail("applicant@example.com"))
	assert.Equal(t, "****", MaskEmail("x"))
	assert.Equal(t, "", MaskEmail("  "))
}

func TestMaskJSON(t *testing.T) {
	masked := MaskJSON(map[string]any{
		"token":  "sk_live_abcdef123456",
		"nested": map[string]any{"card": "4111111111111111"},
		"count":  3,
		"":       "dropped",
	})

	assert.Equal(t, "sk_live_****3456", masked["token"])
	assert.Equal(t, map[string]any{"card": "****1111"}, masked["nested"])
	assert.Equal(t, 3, masked["count"])
	assert.NotContains(t, masked, "")
	assert.Nil(t, MaskJSON(nil))
}

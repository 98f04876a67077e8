package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Set(t *testing.T) {
	var instance Key

	require.NoError(t, instance.Set("f1"))
	assert.Equal(t, KeyF1, instance)

	require.NoError(t, instance.Set(" F24 "))
	assert.Equal(t, KeyF24, instance)

	require.NoError(t, instance.Set(""))
	assert.Equal(t, KeyNone, instance)

	for _, plain := range []string{"a", "f0", "f25", "ctrl+f1", "f"} {
		assert.ErrorContains(t, instance.Set(plain), "illegal-key", plain)
	}
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "f1", KeyF1.String())
	assert.Equal(t, "f12", KeyF12.String())
	assert.Equal(t, "", KeyNone.String())
}

func TestKey_VirtualKey(t *testing.T) {
	assert.Equal(t, uint32(0x70), KeyF1.VirtualKey())
	assert.Equal(t, uint32(0x87), KeyF24.VirtualKey())
	assert.Equal(t, uint32(0), KeyNone.VirtualKey())
}

func TestAllKeys(t *testing.T) {
	require.Len(t, AllKeys, 24)
	assert.Equal(t, KeyF1, AllKeys[0])
	assert.Equal(t, KeyF24, AllKeys[23])
}

package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_Set(t *testing.T) {
	cases := map[string]Type{
		"systray": TypeSystray,
		"hue":     TypeHue,
		"sound":   TypeSound,
		" Sound ": TypeSound,
	}
	for plain, expected := range cases {
		t.Run(plain, func(t *testing.T) {
			var actual Type
			require.NoError(t, actual.Set(plain))
			assert.Equal(t, expected, actual)
		})
	}

	var buf Type
	assert.ErrorContains(t, buf.Set("pager"), "illegal-feedback-type")
}

func TestTypes_Set(t *testing.T) {
	var actual Types
	require.NoError(t, actual.Set("systray, sound"))
	assert.Equal(t, Types{TypeSystray, TypeSound}, actual)
	assert.True(t, actual.Has(TypeSound))
	assert.False(t, actual.Has(TypeHue))
	assert.Equal(t, "systray,sound", actual.String())

	require.NoError(t, actual.Set(""))
	assert.Empty(t, actual)
}

func TestState_OfMuted(t *testing.T) {
	assert.Equal(t, StateMuted, StateOfMuted(true))
	assert.Equal(t, StateLive, StateOfMuted(false))
	assert.True(t, StateMuted.Muted())
	assert.False(t, StateLive.Muted())
}

func TestState_Set(t *testing.T) {
	var actual State
	require.NoError(t, actual.Set("live"))
	assert.Equal(t, StateLive, actual)
	require.NoError(t, actual.Set("muted"))
	assert.Equal(t, StateMuted, actual)
	assert.ErrorContains(t, actual.Set("half"), "illegal-feedback-state")
}

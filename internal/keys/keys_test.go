package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Tab", KeyTab.String())
	assert.Equal(t, "Esc", KeyEsc.String())
	assert.Equal(t, "1", Key1.String())
	assert.Equal(t, "8", Key8.String())

	assert.Len(t, All(), 10)
}

func TestHotkey(t *testing.T) {
	t.Parallel()

	k, err := Hotkey(3)
	require.NoError(t, err)
	assert.Equal(t, Key3, k)

	_, err = Hotkey(0)
	assert.Error(t, err)
	_, err = Hotkey(9)
	assert.Error(t, err)
}

func TestLogSinkAndNoModifier(t *testing.T) {
	t.Parallel()

	var s Sink = LogSink{}
	for _, k := range All() {
		assert.NoError(t, s.Press(k))
		assert.NoError(t, s.Release(k))
	}
	assert.False(t, NoModifier{}.Held())
}

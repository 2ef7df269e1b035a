package fixlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type buf struct {
	bytes.Buffer
}

func (b *buf) Close() error { return nil }

func TestLevelFiltering(t *testing.T) {
	var b buf
	l := New(&b)
	require.NoError(t, l.SetLevel(WARN))

	require.NoError(t, l.Info("should not appear"))
	require.Empty(t, b.String())

	require.NoError(t, l.Error("should appear"))
	require.True(t, strings.Contains(b.String(), "should appear"))
}

func TestStructuredDataRendersSessionTag(t *testing.T) {
	var b buf
	l := New(&b)
	require.NoError(t, l.Info("logon received", Session("FIX.4.2", "SERVER", "CLIENT")))
	out := b.String()
	require.True(t, strings.Contains(out, "FIX.4.2:SERVER->CLIENT"))
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("warn")
	require.NoError(t, err)
	require.Equal(t, WARN, lvl)

	_, err = LevelFromString("bogus")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	var b buf
	l := New(&b)
	require.NoError(t, l.Close())
	require.Error(t, l.Info("after close"))
}

package fixmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRemove(t *testing.T) {
	m := NewFieldMap()
	m.Set(55, []byte("EUR/USD"))
	v, err := m.Get(55)
	require.NoError(t, err)
	require.Equal(t, "EUR/USD", string(v))
	require.True(t, m.IsSet(55))

	m.Remove(55)
	require.False(t, m.IsSet(55))
	_, err = m.Get(55)
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestSetWithOverwriteFalseRejectsDuplicate(t *testing.T) {
	m := NewFieldMap()
	require.True(t, m.SetWithOverwrite(Field{Tag: 1, Value: []byte("a")}, true))
	require.False(t, m.SetWithOverwrite(Field{Tag: 1, Value: []byte("b")}, false))
	v, _ := m.Get(1)
	require.Equal(t, "a", string(v))
}

func TestRepeatedTagsDiagnostic(t *testing.T) {
	m := NewFieldMap()
	m.Set(1, []byte("a"))
	m.Set(1, []byte("b"))
	require.Equal(t, []Tag{1}, m.RepeatedTags())
}

func TestAddGroupAutoIncrement(t *testing.T) {
	m := NewFieldMap()
	g1 := NewGroup(146, 55)
	g1.Map.Set(55, []byte("IBM"))
	m.AddGroup(g1, true)
	g2 := NewGroup(146, 55)
	g2.Map.Set(55, []byte("MSFT"))
	m.AddGroup(g2, true)

	v, err := m.Get(146)
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
	require.Equal(t, 2, m.GroupCount(146))

	got, err := m.GetGroup(2, 146)
	require.NoError(t, err)
	gv, _ := got.Map.Get(55)
	require.Equal(t, "MSFT", string(gv))

	_, err = m.GetGroup(3, 146)
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestByteLenAndChecksumExcludeFramingTags(t *testing.T) {
	m := NewFieldMap()
	m.Set(8, []byte("FIX.4.2"))
	m.Set(9, []byte("5"))
	m.Set(35, []byte("A"))
	m.Set(10, []byte("000"))

	// only tag 35 should count: "35=A\x01" = 5 bytes
	require.Equal(t, 5, m.ByteLenExcludingFraming())

	sum := m.ChecksumSum()
	require.Greater(t, sum, 0)
}

func TestSerializePrefieldThenRemainingThenGroups(t *testing.T) {
	m := NewFieldMap()
	m.Set(35, []byte("A"))
	m.Set(49, []byte("SENDER"))
	m.Set(56, []byte("TARGET"))
	m.Set(34, []byte("1"))

	g := NewGroup(146, 55)
	g.Map.Set(55, []byte("IBM"))
	m.AddGroup(g, true)

	out := m.Serialize([]Tag{35, 49, 56})
	require.Equal(t, "35=A\x0149=SENDER\x0156=TARGET\x0134=1\x01146=1\x0155=IBM\x01", out)
}

func TestGroupOccurrenceUsesDelimiterAsSolePrefield(t *testing.T) {
	g := NewGroup(146, 55)
	g.Map.Set(55, []byte("IBM"))
	g.Map.Set(58, []byte("note"))
	out := g.Map.Serialize([]Tag{g.DelimiterTag})
	require.Equal(t, "55=IBM\x0158=note\x01", out)
}

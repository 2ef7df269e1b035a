package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// roundtripScenario exercises §8 scenario 8 against a freshly-built
// store: set two messages, read back, and confirm the cursor/creation
// time bookkeeping is independent of message storage.
func roundtripScenario(t *testing.T, s MessageStore) {
	t.Helper()
	require.NoError(t, s.Set(2, []byte("ONE")))
	require.NoError(t, s.Set(3, []byte("TWO")))

	got, err := s.Get(2, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"ONE", "TWO"}, got)

	require.NoError(t, s.IncrSenderSeq())
	require.Equal(t, uint64(2), s.NextSenderSeq())
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	roundtripScenario(t, s)
}

func TestMemoryStoreReset(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(5, []byte("X")))
	require.NoError(t, s.Reset())
	got, err := s.Get(1, 100)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, uint64(1), s.NextSenderSeq())
}

func TestFileStoreRoundtripAndReopen(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "SESSION")

	s, err := NewFileStore(prefix)
	require.NoError(t, err)
	roundtripScenario(t, s)
	creation := s.CreationTime()
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(prefix)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(2, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"ONE", "TWO"}, got)
	require.Equal(t, uint64(2), reopened.NextSenderSeq())
	require.Equal(t, creation.Unix(), reopened.CreationTime().Unix())
}

func TestBoltStoreRoundtripAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bolt")

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	roundtripScenario(t, s)
	creation := s.CreationTime()
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(2, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"ONE", "TWO"}, got)
	require.Equal(t, uint64(2), reopened.NextSenderSeq())
	require.Equal(t, creation.Unix(), reopened.CreationTime().Unix())
}

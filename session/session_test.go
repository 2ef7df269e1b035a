package session

import (
	"testing"
	"time"

	"github.com/gravwell/fixengine/store"
	"github.com/stretchr/testify/require"
)

func testID() ID {
	return ID{BeginString: "FIX.4.2", SenderCompID: "CLIENT", TargetCompID: "SERVER"}
}

func TestIDMatchesWildcard(t *testing.T) {
	tmpl := ID{BeginString: "FIX.4.2", SenderCompID: Wildcard, TargetCompID: "SERVER"}
	require.True(t, tmpl.Matches(testID()))
	require.False(t, tmpl.Matches(ID{BeginString: "FIX.4.4", SenderCompID: "CLIENT", TargetCompID: "SERVER"}))
}

func TestCounterpartySwapsCompIDs(t *testing.T) {
	cp := testID().Counterparty()
	require.Equal(t, "SERVER", cp.SenderCompID)
	require.Equal(t, "CLIENT", cp.TargetCompID)
}

func TestHeartbeatPredicates(t *testing.T) {
	s := New(testID(), true, store.NewMemoryStore())
	s.Heartbeat = 100 * time.Millisecond
	now := time.Now()
	s.LastSent = now
	s.LastReceived = now

	require.True(t, s.WithinHeartbeat(now))
	require.False(t, s.NeedHeartbeat(now))

	later := now.Add(150 * time.Millisecond)
	require.False(t, s.WithinHeartbeat(later))
	require.True(t, s.NeedHeartbeat(later))
}

func TestTimedOutAndTestRequestThresholds(t *testing.T) {
	s := New(testID(), true, store.NewMemoryStore())
	s.Heartbeat = 100 * time.Millisecond
	now := time.Now()
	s.LastReceived = now
	s.LastSent = now

	require.False(t, s.TimedOut(now))
	require.True(t, s.NeedTestRequest(now.Add(150*time.Millisecond)))
	require.True(t, s.TimedOut(now.Add(250*time.Millisecond)))
}

func TestLogonAndLogoutTimeouts(t *testing.T) {
	s := New(testID(), false, store.NewMemoryStore())
	s.LogonTimeout = 50 * time.Millisecond
	now := time.Now()
	s.LastReceived = now
	require.False(t, s.LogonTimedOut(now))
	require.True(t, s.LogonTimedOut(now.Add(100*time.Millisecond)))

	s.SentLogout = true
	s.LogoutTimeout = 50 * time.Millisecond
	s.LastSent = now
	require.True(t, s.LogoutTimedOut(now.Add(100*time.Millisecond)))
}

func TestResetReinitializesCursorsAndQueue(t *testing.T) {
	s := New(testID(), true, store.NewMemoryStore())
	s.EnqueuePending(5, []byte("x"))
	require.NoError(t, s.SetNextSenderSeq(9))
	require.NoError(t, s.Reset())
	require.Equal(t, uint64(1), s.NextSenderSeq())
	_, ok := s.DrainPending(5)
	require.False(t, ok)
}

func TestPendingQueueEnqueueDrain(t *testing.T) {
	s := New(testID(), true, store.NewMemoryStore())
	s.EnqueuePending(7, []byte("payload"))
	raw, ok := s.DrainPending(7)
	require.True(t, ok)
	require.Equal(t, "payload", string(raw))
	_, ok = s.DrainPending(7)
	require.False(t, ok)
}

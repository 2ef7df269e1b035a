package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/fixengine/fixcodec"
)

func buildAdminMsg(t *testing.T, msgType string, seq int, extra map[int][]byte) []byte {
	t.Helper()
	msg := fixcodec.NewMessage()
	msg.Header.Set(8, []byte("FIX.4.2"))
	msg.Header.Set(35, []byte(msgType))
	msg.Header.Set(49, []byte("CLIENT"))
	msg.Header.Set(56, []byte("SERVER"))
	msg.Header.Set(34, []byte(strconv.Itoa(seq)))
	msg.Header.Set(52, []byte("20260731-00:00:00"))
	for tag, val := range extra {
		if headerExtraTags[tag] {
			msg.Header.Set(tag, val)
			continue
		}
		msg.Body.Set(tag, val)
	}
	return fixcodec.Serialize(msg)
}

// headerExtraTags are the non-prefield header tags buildAdminMsg's extra
// map may need to place in Header rather than Body.
var headerExtraTags = map[int]bool{43: true, 122: true}

// TestPendingQueueDrainsOnGapClose verifies that a message queued while
// too-high is replayed through NextMsg once the intervening gap closes,
// and that the outstanding resend range is cleared as a result.
func TestPendingQueueDrainsOnGapClose(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))
	e.DrainEvents()
	require.Equal(t, uint64(2), e.State.NextTargetSeq())

	// seq 3 arrives before seq 2: queued, and a resend for [2,2] issued.
	require.NoError(t, e.NextMsg(buildAdminMsg(t, "0", 3, nil)))
	require.NotNil(t, e.State.Resend)
	_, queued := e.State.Pending[3]
	require.True(t, queued)
	e.DrainEvents()

	// seq 2 arrives: target advances to 3, draining the queued seq 3
	// and advancing to 4, which closes the resend range.
	require.NoError(t, e.NextMsg(buildAdminMsg(t, "0", 2, nil)))
	require.Equal(t, uint64(4), e.State.NextTargetSeq())
	require.Nil(t, e.State.Resend)
	require.Empty(t, e.State.Pending)
}

// TestResetOnLogonForcesReset verifies that Settings.ResetOnLogon resets
// the session even when the inbound Logon carries no ResetSeqNumFlag,
// and that doing so bypasses the too-high resend path entirely.
func TestResetOnLogonForcesReset(t *testing.T) {
	e := newTestEngine(t)
	e.Settings.ResetOnLogon = true

	require.NoError(t, e.NextMsg(inboundLogon(t, 5)))
	require.True(t, e.State.ReceivedLogon)
	require.Equal(t, uint64(2), e.State.NextTargetSeq())
	require.Nil(t, e.State.Resend)
}

// TestIgnorePossDupResendRequestsSkipsReplay verifies that a
// PossDupFlag=Y ResendRequest is acknowledged without replay when
// Settings.IgnorePossDupResendRequests is set.
func TestIgnorePossDupResendRequestsSkipsReplay(t *testing.T) {
	e := newTestEngine(t)
	e.Settings.IgnorePossDupResendRequests = true
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))
	e.DrainEvents()

	req := buildAdminMsg(t, "2", 2, map[int][]byte{
		43: []byte("Y"),
		7:  []byte("1"),
		16: []byte("1"),
	})
	require.NoError(t, e.NextMsg(req))
	require.Equal(t, uint64(3), e.State.NextTargetSeq())
	require.Empty(t, e.DrainEvents())
}

// TestSendRedundantResendRequestsGating verifies that a second too-high
// arrival while a resend is already outstanding is suppressed unless
// Settings.SendRedundantResendRequests is set.
func TestSendRedundantResendRequestsGating(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.NextMsg(inboundLogon(t, 1)))
	e.DrainEvents()

	require.NoError(t, e.NextMsg(buildAdminMsg(t, "0", 4, nil)))
	e.DrainEvents()
	first := *e.State.Resend

	require.NoError(t, e.NextMsg(buildAdminMsg(t, "0", 5, nil)))
	require.Empty(t, e.DrainEvents())
	require.Equal(t, first, *e.State.Resend)

	e.Settings.SendRedundantResendRequests = true
	require.NoError(t, e.NextMsg(buildAdminMsg(t, "0", 6, nil)))
	events := e.DrainEvents()
	require.NotEmpty(t, events)
}

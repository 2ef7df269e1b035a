package engine

import (
	"time"

	"github.com/gravwell/fixengine/field"
	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/fixerr"
)

// verify runs §4.7's pre-dispatch checks shared by every inbound
// message type: comp-id match, seq-num gap handling, sending-time
// latency, and the from_admin/from_app callback. It returns the
// message's seq-num and whether the caller should continue processing
// (false means verify already fully handled the message — queued for
// gap-fill, or logged out).
func (e *Engine) verify(msg *fixcodec.Message, raw []byte) (uint64, bool, error) {
	return e.verifyWithOptions(msg, raw, false)
}

// verifyGapFill is the relaxed variant used for SequenceReset-GapFill
// (§4.7.c): a too-low seq-num is tolerated rather than triggering a
// mismatch logout, since a gap-fill may legitimately arrive after the
// gap it announces has already been closed another way.
func (e *Engine) verifyGapFill(msg *fixcodec.Message, raw []byte) (uint64, bool, error) {
	return e.verifyWithOptions(msg, raw, true)
}

func (e *Engine) verifyWithOptions(msg *fixcodec.Message, raw []byte, allowTooLow bool) (uint64, bool, error) {
	senderRaw, _ := msg.Header.Get(tagSenderCompID)
	targetRaw, _ := msg.Header.Get(tagTargetCompID)
	if string(senderRaw) != e.State.ID.TargetCompID || string(targetRaw) != e.State.ID.SenderCompID {
		if err := e.sendReject(msg, fixerr.CompIDProblem.NumericValue(), 0, "CompID problem"); err != nil {
			return 0, false, err
		}
		if err := e.logoutWithText("CompIDProblem"); err != nil {
			return 0, false, err
		}
		return 0, false, nil
	}

	seqRaw, _ := msg.Header.Get(tagMsgSeqNum)
	seqNum, err := field.ParseUint(seqRaw)
	if err != nil {
		return 0, false, err
	}

	possDupRaw, _ := msg.Header.Get(tagPossDupFlag)
	isPossDup := string(possDupRaw) == "Y"

	expected := e.State.NextTargetSeq()

	if seqNum > expected {
		e.State.EnqueuePending(seqNum, raw)
		if e.State.Resend == nil || e.Settings.SendRedundantResendRequests {
			if err := e.issueResendRequest(expected, seqNum-1); err != nil {
				return seqNum, false, err
			}
		}
		return seqNum, false, nil
	}

	if seqNum < expected && allowTooLow {
		return seqNum, true, nil
	}

	if seqNum < expected && !isPossDup {
		if err := e.logoutWithText("MsgSeqNum too low, a gap fill was expected"); err != nil {
			return seqNum, false, err
		}
		return seqNum, false, nil
	}

	if e.Settings.CheckLatency {
		sendingTimeRaw, _ := msg.Header.Get(tagSendingTime)
		if sentAt, err := field.ParseUTCTimestamp(sendingTimeRaw); err == nil {
			if time.Since(sentAt) > e.Settings.MaxLatency {
				if err := e.sendReject(msg, fixerr.SendingTimeAccuracyProblem.NumericValue(), tagSendingTime, "SendingTime accuracy problem"); err != nil {
					return seqNum, false, err
				}
				if err := e.logoutWithText("SendingTime accuracy problem"); err != nil {
					return seqNum, false, err
				}
				return seqNum, false, nil
			}
		}
	}

	e.State.MarkReceived(time.Now())

	msgType, _ := msg.Header.Get(tagMsgType)
	if fixcodec.IsAdminMsgType(string(msgType)) {
		if err := e.App.FromAdmin(msg, e.State.ID); err != nil {
			return seqNum, false, err
		}
	} else {
		if err := e.App.FromApp(msg, e.State.ID); err != nil {
			return seqNum, false, err
		}
	}

	return seqNum, true, nil
}

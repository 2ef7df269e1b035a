package engine

import (
	"errors"
	"strconv"
	"time"

	"github.com/gravwell/fixengine/field"
	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/fixerr"
	"github.com/gravwell/fixengine/fixlog"
)

// NextMsg parses one inbound frame and dispatches it per §4.7's
// MsgType table.
func (e *Engine) NextMsg(raw []byte) error {
	msg, err := fixcodec.Parse(raw, e.SessionDD, e.AppDD, true)
	if err != nil {
		var perr *fixerr.ParseError
		if errors.As(err, &perr) {
			if !e.State.ReceivedLogon {
				e.disconnect("Logon message is not valid")
				return nil
			}
			reject := perr.ToSessionReject()
			if sendErr := e.sendReject(fixcodec.NewMessage(), reject.Code.NumericValue(), reject.RefTag, reject.Text); sendErr != nil {
				return sendErr
			}
			return e.State.IncrTargetSeq()
		}
		return err
	}

	if !msg.StructurallyValid {
		if !e.State.ReceivedLogon {
			e.disconnect("Logon message is not valid")
			return nil
		}
	}

	msgType, _ := msg.Header.Get(tagMsgType)
	switch string(msgType) {
	case msgTypeLogon:
		return e.handleLogon(msg, raw)
	case msgTypeLogout:
		return e.handleLogout(msg, raw)
	case msgTypeHeartbeat:
		seqNum, ok, err := e.verify(msg, raw)
		if err != nil || !ok {
			return err
		}
		return e.ackInbound(seqNum)
	case msgTypeTestRequest:
		seqNum, ok, err := e.verify(msg, raw)
		if err != nil || !ok {
			return err
		}
		testReqID, _ := msg.Body.Get(tagTestReqID)
		if err := e.sendHeartbeat(testReqID); err != nil {
			return err
		}
		return e.ackInbound(seqNum)
	case msgTypeSequenceReset:
		return e.handleSequenceReset(msg, raw)
	case msgTypeResendRequest:
		return e.handleResendRequest(msg, raw)
	default:
		seqNum, ok, err := e.verify(msg, raw)
		if err != nil || !ok {
			return err
		}
		return e.ackInbound(seqNum)
	}
}

// ackInbound advances the target seq for a successfully verified
// inbound message, unless it was already advanced past (a tolerated
// PossDup replay at or below the expected seq), then drains any
// queued out-of-order messages that are now contiguous and checks
// outstanding resend-chunk progress.
func (e *Engine) ackInbound(seqNum uint64) error {
	if seqNum < e.State.NextTargetSeq() {
		return nil
	}
	if err := e.State.IncrTargetSeq(); err != nil {
		return err
	}
	return e.afterTargetAdvance()
}

// afterTargetAdvance drains Pending messages that have become the next
// expected seq-num (§4.5's queue) and, once the queue is dry, checks
// whether an outstanding resend chunk has been satisfied.
func (e *Engine) afterTargetAdvance() error {
	for {
		raw, ok := e.State.DrainPending(e.State.NextTargetSeq())
		if !ok {
			break
		}
		if err := e.NextMsg(raw); err != nil {
			return err
		}
	}
	return e.checkResendProgress()
}

// checkResendProgress advances an outstanding resend chunk to the next
// chunk once the target seq catches up to it, or clears it once the
// full range is satisfied (§4.7 "Resend request issuance").
func (e *Engine) checkResendProgress() error {
	r := e.State.Resend
	if r == nil {
		return nil
	}
	next := e.State.NextTargetSeq()
	if next <= r.ChunkEnd {
		return nil
	}
	if r.Done(next) {
		e.State.Resend = nil
		return nil
	}
	return e.issueResendRequest(r.ChunkEnd+1, r.End)
}

// handleLogon implements §4.7.a.
func (e *Engine) handleLogon(msg *fixcodec.Message, raw []byte) error {
	senderRaw, _ := msg.Header.Get(tagSenderCompID)
	targetRaw, _ := msg.Header.Get(tagTargetCompID)
	if string(senderRaw) != e.State.ID.TargetCompID || string(targetRaw) != e.State.ID.SenderCompID {
		if err := e.sendReject(msg, fixerr.CompIDProblem.NumericValue(), 0, "CompID problem"); err != nil {
			return err
		}
		return e.logoutWithText("CompIDProblem")
	}

	resetFlag, _ := msg.Body.Get(tagResetSeqNumFlag)
	isReset := string(resetFlag) == "Y" || e.Settings.ResetOnLogon
	if isReset {
		if err := e.State.Reset(); err != nil {
			return err
		}
	}

	if e.Settings.RefreshOnLogon {
		if err := e.State.Store.Refresh(); err != nil {
			return err
		}
	}

	if e.State.ID.BeginString == "FIXT.1.1" {
		if applVerID, _ := msg.Body.Get(tagDefaultApplVerID); len(applVerID) == 0 {
			e.disconnect("InvalidLogon")
			return nil
		}
	}

	seqRaw, _ := msg.Header.Get(tagMsgSeqNum)
	seqNum, err := field.ParseUint(seqRaw)
	if err != nil {
		return err
	}
	expected := e.State.NextTargetSeq()

	if !e.State.IsInitiator {
		if hbRaw, err := msg.Body.Get(tagHeartBtInt); err == nil {
			if hb, err := field.ParseInt(hbRaw); err == nil {
				e.State.Heartbeat = secondsToDuration(hb)
			}
		}
	}

	if seqNum > expected && !isReset {
		e.State.EnqueuePending(seqNum, raw)
		return e.issueResendRequest(expected, seqNum-1)
	}

	if err := e.State.IncrTargetSeq(); err != nil {
		return err
	}
	e.State.ReceivedLogon = true

	if !e.State.SentLogon {
		echo := e.buildAdmin(msgTypeLogon)
		echo.Body.Set(tagEncryptMethod, []byte("0"))
		echo.Body.Set(tagHeartBtInt, []byte(itoaDuration(e.State.Heartbeat)))
		if _, err := e.sendRaw(echo, 0); err != nil {
			return err
		}
		e.State.SentLogon = true
	}

	e.Log.Info("logon accepted", fixlog.Session(e.State.ID.BeginString, e.State.ID.SenderCompID, e.State.ID.TargetCompID))
	e.App.OnLogon(e.State.ID)
	return e.afterTargetAdvance()
}

// handleLogout implements §4.7.b.
func (e *Engine) handleLogout(msg *fixcodec.Message, raw []byte) error {
	if !e.State.SentLogout {
		echo := e.buildAdmin(msgTypeLogout)
		if _, err := e.sendRaw(echo, 0); err != nil {
			return err
		}
		e.State.SentLogout = true
	}
	e.State.ReceivedLogout = true
	if err := e.State.IncrTargetSeq(); err != nil {
		return err
	}
	if err := e.afterTargetAdvance(); err != nil {
		return err
	}
	e.Log.Info("logout received", fixlog.Session(e.State.ID.BeginString, e.State.ID.SenderCompID, e.State.ID.TargetCompID))
	if e.Settings.ResetOnLogout {
		if err := e.State.Reset(); err != nil {
			return err
		}
	}
	e.App.OnLogout(e.State.ID)
	e.disconnect("logout")
	return nil
}

// handleSequenceReset implements §4.7.c.
func (e *Engine) handleSequenceReset(msg *fixcodec.Message, raw []byte) error {
	gapFillRaw, _ := msg.Body.Get(tagGapFillFlag)
	isGapFill := string(gapFillRaw) == "Y"

	if isGapFill {
		if _, ok, err := e.verifyGapFill(msg, raw); err != nil || !ok {
			return err
		}
	} else {
		if _, ok, err := e.verify(msg, raw); err != nil || !ok {
			return err
		}
	}

	newSeqRaw, _ := msg.Body.Get(tagNewSeqNo)
	newSeq, err := field.ParseUint(newSeqRaw)
	if err != nil {
		return err
	}
	current := e.State.NextTargetSeq()

	switch {
	case newSeq > current:
		if err := e.State.SetNextTargetSeq(newSeq); err != nil {
			return err
		}
		return e.afterTargetAdvance()
	case newSeq < current:
		return e.sendReject(msg, fixerr.ValueIsIncorrect.NumericValue(), tagNewSeqNo, "NewSeqNo is less than expected target seq")
	default:
		return nil
	}
}

// handleResendRequest implements §4.7.d.
func (e *Engine) handleResendRequest(msg *fixcodec.Message, raw []byte) error {
	seqNum, ok, err := e.verify(msg, raw)
	if err != nil || !ok {
		return err
	}

	possDupRaw, _ := msg.Header.Get(tagPossDupFlag)
	if string(possDupRaw) == "Y" && e.Settings.IgnorePossDupResendRequests {
		return e.ackInbound(seqNum)
	}

	beginRaw, _ := msg.Body.Get(tagBeginSeqNo)
	endRaw, _ := msg.Body.Get(tagEndSeqNo)
	begin, err := field.ParseUint(beginRaw)
	if err != nil {
		return err
	}
	end, err := field.ParseUint(endRaw)
	if err != nil {
		return err
	}
	if end == 0 || end == 999999 {
		end = e.State.NextSenderSeq() - 1
	}
	if end >= begin {
		if err := e.replayRange(begin, end); err != nil {
			return err
		}
	}
	return e.ackInbound(seqNum)
}

// replayRange resends [begin, end] per §4.7's resend-request handling.
// Application messages are replayed individually with PossDupFlag=Y and
// OrigSendingTime set; runs of administrative messages, and any seq-nums
// the store has no record of, are coalesced into a single
// SequenceReset-GapFill rather than replayed verbatim.
func (e *Engine) replayRange(begin, end uint64) error {
	messages, err := e.State.Store.Get(begin, end)
	if err != nil {
		return err
	}

	gapStart := begin
	flushGap := func(upTo uint64) error {
		if upTo <= gapStart {
			return nil
		}
		return e.sendGapFill(gapStart, upTo)
	}

	for _, stored := range messages {
		replay, rerr := fixcodec.Parse([]byte(stored), e.SessionDD, e.AppDD, false)
		if rerr != nil {
			continue
		}
		seqRaw, _ := replay.Header.Get(tagMsgSeqNum)
		seq, serr := field.ParseUint(seqRaw)
		if serr != nil {
			continue
		}

		msgType, _ := replay.Header.Get(tagMsgType)
		if fixcodec.IsAdminMsgType(string(msgType)) {
			continue // folded into the next gap-fill
		}

		if err := flushGap(seq); err != nil {
			return err
		}
		gapStart = seq + 1

		replay.Header.Set(tagPossDupFlag, []byte("Y"))
		if origRaw, gerr := replay.Header.Get(tagSendingTime); gerr == nil {
			replay.Header.Set(tagOrigSendingTime, origRaw)
		}
		if _, err := e.sendRaw(replay, seq); err != nil {
			return err
		}
	}
	return flushGap(end + 1)
}

// sendGapFill emits a SequenceReset-GapFill occupying seq begin and
// announcing that the next expected seq-num is upTo.
func (e *Engine) sendGapFill(begin, upTo uint64) error {
	msg := e.buildAdmin(msgTypeSequenceReset)
	msg.Body.Set(tagGapFillFlag, []byte("Y"))
	msg.Body.Set(tagNewSeqNo, []byte(strconv.FormatUint(upTo, 10)))
	_, err := e.sendRaw(msg, begin)
	return err
}

func secondsToDuration(v int64) time.Duration {
	return time.Duration(v) * time.Second
}

func itoaDuration(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}

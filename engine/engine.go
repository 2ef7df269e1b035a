// Package engine implements the FIX session engine (§4.7): the
// protocol state machine driving session.State, dictionary validation,
// the message codec, and the message store through the tick (Next) and
// inbound-dispatch (NextMsg) algorithms.
package engine

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/field"
	"github.com/gravwell/fixengine/fixcodec"
	"github.com/gravwell/fixengine/fixlog"
	"github.com/gravwell/fixengine/schedule"
	"github.com/gravwell/fixengine/session"
	"github.com/gravwell/fixengine/store"
)

// Engine is the per-session protocol state machine (component G). It
// owns session.State (flags, counters, timers, the MessageStore
// handle) and exposes a narrow surface to its reactor: Next (periodic
// tick), NextMsg (one decoded inbound frame), and DrainEvents (outbound
// events the reactor must act on).
type Engine struct {
	mu sync.Mutex

	State    *session.State
	SessionDD *dictionary.DataDictionary
	AppDD    *dictionary.DataDictionary
	Schedule schedule.Schedule
	App      Application
	Settings Settings

	// InstanceID is a random per-engine identifier minted by New. The
	// engine's own log records do not include it.
	InstanceID uuid.UUID

	// Log receives the engine's own diagnostics (disconnects, resend
	// issuance, rejects, logon/logout transitions), independent of
	// whatever App.On*/From*/To* callbacks choose to log.
	Log *fixlog.Logger

	events []Event

	resendLimiter *rate.Limiter

	lastScheduleCheck time.Time
}

// New builds an Engine bound to id, backed by st, validating against
// sessionDD/appDD, scheduled by sched, and calling back into app. A nil
// log discards the engine's own diagnostics.
func New(id session.ID, initiator bool, st store.MessageStore, sessionDD, appDD *dictionary.DataDictionary, sched schedule.Schedule, app Application, settings Settings, log *fixlog.Logger) *Engine {
	if log == nil {
		log = fixlog.NewDiscard()
	}
	e := &Engine{
		State:      session.New(id, initiator, st),
		SessionDD:  sessionDD,
		AppDD:      appDD,
		Schedule:   sched,
		App:        app,
		Settings:   settings,
		InstanceID: uuid.New(),
		Log:        log,
	}
	if settings.MaxMessagesInResendRequest > 0 {
		e.resendLimiter = rate.NewLimiter(rate.Every(time.Second), settings.MaxMessagesInResendRequest)
	}
	app.OnCreate(id)
	return e
}

// DrainEvents returns and clears the accumulated outbound event
// stream (§4.8/§9).
func (e *Engine) DrainEvents() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ev := e.events
	e.events = nil
	return ev
}

func (e *Engine) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *Engine) buildAdmin(msgType string) *fixcodec.Message {
	msg := fixcodec.NewMessage()
	msg.Header.Set(tagMsgType, []byte(msgType))
	return msg
}

// usesSubSecondPrecision reports whether begin_string supports
// sub-second SendingTime precision (§4.7's initialize_header).
func usesSubSecondPrecision(beginString string) bool {
	return beginString >= "FIX.4.2" || beginString == "FIXT.1.1"
}

// initializeHeader fills tags 8/49/56/34/52 (and optional sub/location
// ids, 369) per §4.7.
func (e *Engine) initializeHeader(msg *fixcodec.Message, seqNum uint64) {
	id := e.State.ID
	msg.Header.Set(tagBeginString, []byte(id.BeginString))
	msg.Header.Set(tagSenderCompID, []byte(id.SenderCompID))
	msg.Header.Set(tagTargetCompID, []byte(id.TargetCompID))
	if id.SenderSubID != "" {
		msg.Header.Set(tagSenderSubID, []byte(id.SenderSubID))
	}
	if id.SenderLocationID != "" {
		msg.Header.Set(tagSenderLocationID, []byte(id.SenderLocationID))
	}
	if id.TargetSubID != "" {
		msg.Header.Set(tagTargetSubID, []byte(id.TargetSubID))
	}
	if id.TargetLocationID != "" {
		msg.Header.Set(tagTargetLocationID, []byte(id.TargetLocationID))
	}

	seq := seqNum
	if seq == 0 {
		seq = e.State.NextSenderSeq()
	}
	msg.Header.Set(tagMsgSeqNum, []byte(strconv.FormatUint(seq, 10)))

	precision := e.Settings.TimestampPrecision
	if !usesSubSecondPrecision(id.BeginString) {
		precision = field.PrecisionSeconds
	}
	msg.Header.Set(tagSendingTime, field.FormatUTCTimestamp(time.Now().UTC(), precision))

	if e.Settings.EnableLastMsgSeqNumProcessed {
		processed := e.State.NextTargetSeq() - 1
		msg.Header.Set(tagLastMsgSeqNumProcessed, []byte(strconv.FormatUint(processed, 10)))
	}
}

// sendRaw fills the header, runs the to_admin/to_app callbacks,
// serializes, persists (for fresh sends), and emits the bytes for the
// reactor to write (§4.7's send_raw).
func (e *Engine) sendRaw(msg *fixcodec.Message, seqNum uint64) (bool, error) {
	e.initializeHeader(msg, seqNum)

	msgType, _ := msg.Header.Get(tagMsgType)
	admin := fixcodec.IsAdminMsgType(string(msgType))

	if admin {
		if err := e.App.ToAdmin(msg, e.State.ID); err != nil {
			if errors.Is(err, ErrDoNotSend) {
				return false, nil
			}
			return false, err
		}
	}

	if string(msgType) == msgTypeLogon {
		if reset, _ := msg.Body.Get(tagResetSeqNumFlag); string(reset) == "Y" && seqNum == 0 {
			if err := e.State.Reset(); err != nil {
				return false, err
			}
			msg.Header.Set(tagMsgSeqNum, []byte("1"))
		}
	}

	if !admin {
		if err := e.App.ToApp(msg, e.State.ID); err != nil {
			if errors.Is(err, ErrDoNotSend) {
				return false, nil
			}
			return false, err
		}
	}

	raw := fixcodec.Serialize(msg)

	if seqNum == 0 {
		seqRaw, _ := msg.Header.Get(tagMsgSeqNum)
		actual, err := field.ParseUint(seqRaw)
		if err != nil {
			return false, err
		}
		if err := e.State.Store.Set(actual, raw); err != nil {
			return false, err
		}
		if err := e.State.IncrSenderSeq(); err != nil {
			return false, err
		}
	}

	e.emit(MessageEvent{Bytes: raw})
	e.State.MarkSent(time.Now())
	return true, nil
}

func (e *Engine) sendHeartbeat(testReqID []byte) error {
	msg := e.buildAdmin(msgTypeHeartbeat)
	if len(testReqID) > 0 {
		msg.Body.Set(tagTestReqID, testReqID)
	}
	_, err := e.sendRaw(msg, 0)
	return err
}

func (e *Engine) disconnect(reason string) {
	e.State.IsConnected = false
	e.emit(DisconnectEvent{Reason: reason})
	e.Log.Info("session disconnected", e.sessionLogParam(), fixlog.Field("reason", reason))
	if e.Settings.ResetOnDisconnect {
		e.State.Reset()
	}
}

func (e *Engine) sessionLogParam() rfc5424.SDParam {
	return fixlog.Session(e.State.ID.BeginString, e.State.ID.SenderCompID, e.State.ID.TargetCompID)
}

func (e *Engine) resetSession(reason string) {
	e.State.Reset()
	e.emit(ResetEvent{Reason: reason})
}

// sendReject emits a session-level Reject(3) referencing the offending
// inbound message (§7).
func (e *Engine) sendReject(refMsg *fixcodec.Message, code int, refTag int, text string) error {
	reject := e.buildAdmin(msgTypeReject)
	if seqRaw, err := refMsg.Header.Get(tagMsgSeqNum); err == nil {
		reject.Body.Set(tagRefSeqNum, seqRaw)
	}
	if mtRaw, err := refMsg.Header.Get(tagMsgType); err == nil {
		reject.Body.Set(tagRefMsgType, mtRaw)
	}
	if refTag != 0 {
		reject.Body.Set(tagRefTagID, []byte(strconv.Itoa(refTag)))
	}
	reject.Body.Set(tagSessionRejectReason, []byte(strconv.Itoa(code)))
	reject.Body.Set(tagText, []byte(text))
	e.Log.Warn("sending session reject", e.sessionLogParam(), fixlog.Field("text", text))
	_, err := e.sendRaw(reject, 0)
	return err
}

func (e *Engine) logoutWithText(text string) error {
	msg := e.buildAdmin(msgTypeLogout)
	msg.Body.Set(tagText, []byte(text))
	_, err := e.sendRaw(msg, 0)
	e.State.SentLogout = true
	e.disconnect(text)
	return err
}

// issueResendRequest asks the counterparty to replay [begin, end],
// chunked by Settings.MaxMessagesInResendRequest if set (§4.7 "Resend
// request issuance"), throttled by resendLimiter so a fast stream of
// too-high-seq arrivals cannot spam ResendRequests.
func (e *Engine) issueResendRequest(begin, end uint64) error {
	chunkEnd := end
	if e.Settings.MaxMessagesInResendRequest > 0 {
		span := uint64(e.Settings.MaxMessagesInResendRequest)
		if end-begin+1 > span {
			chunkEnd = begin + span - 1
		}
	}
	e.State.Resend = &session.ResendRange{Begin: begin, End: end, ChunkEnd: chunkEnd}

	if e.resendLimiter != nil && !e.resendLimiter.Allow() {
		return nil
	}

	e.Log.Info("issuing resend request", e.sessionLogParam(),
		fixlog.Field("begin", strconv.FormatUint(begin, 10)), fixlog.Field("end", strconv.FormatUint(chunkEnd, 10)))

	msg := e.buildAdmin(msgTypeResendRequest)
	msg.Body.Set(tagBeginSeqNo, []byte(strconv.FormatUint(begin, 10)))
	msg.Body.Set(tagEndSeqNo, []byte(strconv.FormatUint(chunkEnd, 10)))
	_, err := e.sendRaw(msg, 0)
	return err
}

// Next executes the periodic tick algorithm (§4.7).
func (e *Engine) Next(now time.Time) error {
	if e.Schedule != nil {
		if !e.Schedule.IsSessionTime(now) {
			e.resetSession("out of session time")
			return nil
		}
		if !e.lastScheduleCheck.IsZero() && e.Schedule.IsNewSession(e.lastScheduleCheck, now) {
			e.resetSession("new session window")
		}
		e.lastScheduleCheck = now
	}

	if !e.State.IsEnabled && (e.State.SentLogon || e.State.ReceivedLogon) {
		return e.logoutWithText("session disabled")
	}

	if !e.State.ReceivedLogon {
		switch {
		case e.State.IsInitiator && !e.State.SentLogon:
			msg := e.buildAdmin(msgTypeLogon)
			msg.Body.Set(tagEncryptMethod, []byte("0"))
			msg.Body.Set(tagHeartBtInt, []byte(strconv.Itoa(int(e.State.Heartbeat/time.Second))))
			if _, err := e.sendRaw(msg, 0); err != nil {
				return err
			}
			e.State.SentLogon = true
		case !e.State.IsInitiator && e.State.LogonTimedOut(now):
			e.disconnect("Timed out waiting for logon request")
		case e.State.SentLogon && e.State.LogonTimedOut(now):
			e.disconnect("Timed out waiting for logon response")
		}
		return nil
	}

	if e.State.LogoutTimedOut(now) {
		e.disconnect("Timed out waiting for logout response")
		return nil
	}

	if e.State.WithinHeartbeat(now) {
		return nil
	}
	if e.State.Heartbeat <= 0 {
		return nil
	}

	if e.State.TimedOut(now) {
		if e.Settings.SendLogoutBeforeDisconnectFromTimeout {
			return e.logoutWithText("Timed out")
		}
		e.disconnect("Timed out")
		return nil
	}

	if e.State.NeedTestRequest(now) {
		msg := e.buildAdmin(msgTypeTestRequest)
		msg.Body.Set(tagTestReqID, []byte("TEST"))
		if _, err := e.sendRaw(msg, 0); err != nil {
			return err
		}
		e.State.IncrTestRequestCounter()
		return nil
	}

	if e.State.NeedHeartbeat(now) {
		return e.sendHeartbeat(nil)
	}
	return nil
}

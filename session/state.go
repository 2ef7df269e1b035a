package session

import (
	"sync"
	"time"

	"github.com/gravwell/fixengine/store"
)

// ResendRange tracks an outstanding resend request this side issued
// (§4.7's "Resend request issuance"): the gap we asked the counterparty
// to fill, possibly chunked.
type ResendRange struct {
	Begin    uint64
	End      uint64
	ChunkEnd uint64
}

// Done reports whether the target seq has caught up with the full
// range (chunking notwithstanding).
func (r *ResendRange) Done(nextTarget uint64) bool {
	return nextTarget > r.End
}

// State is the runtime, per-session state described in §3's
// "SessionState (runtime, per session)". The engine is the sole mutator.
// Each method holds an internal mutex while it touches the fields it
// uses; direct access to the exported fields is not guarded.
type State struct {
	mtx sync.Mutex

	ID ID

	// Flags
	IsEnabled      bool
	IsInitiator    bool
	IsConnected    bool
	ReceivedLogon  bool
	SentLogon      bool
	ReceivedLogout bool
	SentLogout     bool
	SentReset      bool
	ReceivedReset  bool

	// Counters
	TestRequestCounter int

	// Timestamps (monotonic for timers, wall-clock for SendingTime -
	// §9 "Time sources")
	LastReceived time.Time
	LastSent     time.Time

	// Intervals
	Heartbeat     time.Duration
	LogonTimeout  time.Duration // default 10s
	LogoutTimeout time.Duration // default 2s

	// Resend bookkeeping
	Resend *ResendRange

	// Queue: seq-num -> raw bytes of messages received with too-high
	// seq, awaiting gap-fill.
	Pending map[uint64][]byte

	Store store.MessageStore
}

// New returns a fresh State bound to st, with default timeouts per §3.
func New(id ID, initiator bool, st store.MessageStore) *State {
	now := time.Now()
	return &State{
		ID:            id,
		IsEnabled:     true,
		IsInitiator:   initiator,
		LogonTimeout:  10 * time.Second,
		LogoutTimeout: 2 * time.Second,
		LastReceived:  now,
		LastSent:      now,
		Pending:       make(map[uint64][]byte),
		Store:         st,
	}
}

// Reset clears logon flags, resend bookkeeping, and the out-of-order
// queue, and resets the store's sequence cursors to 1 (§3 lifecycle:
// "Reset on: schedule boundary crossing, logon with ResetSeqNumFlag=Y,
// operator command, or reset_on_disconnect").
func (s *State) Reset() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.ReceivedLogon = false
	s.SentLogon = false
	s.ReceivedLogout = false
	s.SentLogout = false
	s.SentReset = false
	s.ReceivedReset = false
	s.TestRequestCounter = 0
	s.Resend = nil
	s.Pending = make(map[uint64][]byte)
	return s.Store.Reset()
}

func (s *State) NextSenderSeq() uint64 { return s.Store.NextSenderSeq() }
func (s *State) NextTargetSeq() uint64 { return s.Store.NextTargetSeq() }

func (s *State) IncrSenderSeq() error { return s.Store.IncrSenderSeq() }
func (s *State) IncrTargetSeq() error { return s.Store.IncrTargetSeq() }

func (s *State) SetNextTargetSeq(n uint64) error { return s.Store.SetNextTargetSeq(n) }
func (s *State) SetNextSenderSeq(n uint64) error { return s.Store.SetNextSenderSeq(n) }

// MarkSent records that a message was just handed to the responder.
func (s *State) MarkSent(now time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.LastSent = now
}

// MarkReceived records that a message was just accepted from the
// counterparty, and resets the test-request counter (§4.7 Verify).
func (s *State) MarkReceived(now time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.LastReceived = now
	s.TestRequestCounter = 0
}

// --- §4.6 timer predicates ---

// WithinHeartbeat reports whether both directions have seen traffic
// inside the heartbeat interval.
func (s *State) WithinHeartbeat(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.Heartbeat <= 0 {
		return true
	}
	return now.Sub(s.LastSent) < s.Heartbeat && now.Sub(s.LastReceived) < s.Heartbeat
}

// NeedHeartbeat reports whether it is time to proactively send a
// Heartbeat.
func (s *State) NeedHeartbeat(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.TestRequestCounter == 0 && s.Heartbeat > 0 && now.Sub(s.LastSent) >= s.Heartbeat
}

// NeedTestRequest reports whether the counterparty has been silent long
// enough to warrant a TestRequest.
func (s *State) NeedTestRequest(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.Heartbeat <= 0 {
		return false
	}
	threshold := time.Duration(1.2 * float64(s.TestRequestCounter+1) * float64(s.Heartbeat))
	return now.Sub(s.LastReceived) >= threshold
}

// TimedOut reports whether the counterparty has been silent long enough
// to declare the connection dead.
func (s *State) TimedOut(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.Heartbeat <= 0 {
		return false
	}
	threshold := time.Duration(2.4 * float64(s.Heartbeat))
	return now.Sub(s.LastReceived) >= threshold
}

// LogonTimedOut reports whether the logon handshake has stalled.
func (s *State) LogonTimedOut(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return now.Sub(s.LastReceived) >= s.LogonTimeout
}

// LogoutTimedOut reports whether we sent a Logout and the counterparty
// never replied within LogoutTimeout.
func (s *State) LogoutTimedOut(now time.Time) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.SentLogout && now.Sub(s.LastSent) >= s.LogoutTimeout
}

// IncrTestRequestCounter bumps the counter when a TestRequest is sent.
func (s *State) IncrTestRequestCounter() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.TestRequestCounter++
}

// EnqueuePending stashes a too-high-seq message awaiting gap fill.
func (s *State) EnqueuePending(seq uint64, raw []byte) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.Pending[seq] = raw
}

// DrainPending removes and returns the pending message for seq, if any.
func (s *State) DrainPending(seq uint64) ([]byte, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	raw, ok := s.Pending[seq]
	if ok {
		delete(s.Pending, seq)
	}
	return raw, ok
}

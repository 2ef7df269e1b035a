package engine

import (
	"time"

	"github.com/gravwell/fixengine/field"
)

// Settings holds the per-session behavioral configuration keys of §6
// that shape the engine's decisions, beyond the timers already owned by
// session.State.
type Settings struct {
	CheckLatency   bool
	MaxLatency     time.Duration // default 120s
	UseLocalTime   bool

	MaxMessagesInResendRequest int // 0 = unchunked

	SendRedundantResendRequests bool // original_source supplement
	RefreshOnLogon              bool // original_source supplement
	ResetOnLogon                bool
	ResetOnLogout               bool // original_source supplement
	ResetOnDisconnect           bool // original_source supplement

	RequiresOrigSendingTime     bool
	IgnorePossDupResendRequests bool

	EnableLastMsgSeqNumProcessed bool

	SendLogoutBeforeDisconnectFromTimeout bool

	TimestampPrecision field.Precision
}

// DefaultSettings returns §6's documented defaults.
func DefaultSettings() Settings {
	return Settings{
		CheckLatency:        true,
		MaxLatency:          120 * time.Second,
		TimestampPrecision:  field.PrecisionMillis,
	}
}

package fixcfg

import (
	"fmt"
	"strings"
	"time"

	"github.com/gravwell/fixengine/engine"
	"github.com/gravwell/fixengine/field"
	"github.com/gravwell/fixengine/session"
)

// SessionID builds the session.ID identity from a SessionConfig,
// carrying the "*" wildcard through unchanged for dynamic acceptors.
func (c *SessionConfig) SessionID() session.ID {
	return session.ID{
		BeginString:      c.BeginString,
		SenderCompID:     c.SenderCompID,
		SenderSubID:      c.SenderSubID,
		SenderLocationID: c.SenderLocationID,
		TargetCompID:     c.TargetCompID,
		TargetSubID:      c.TargetSubID,
		TargetLocationID: c.TargetLocationID,
	}
}

// IsInitiator reports the session's ConnectionType.
func (c *SessionConfig) IsInitiator() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.ConnectionType)) {
	case string(Initiator):
		return true, nil
	case string(Acceptor):
		return false, nil
	}
	return false, fmt.Errorf("invalid ConnectionType %q", c.ConnectionType)
}

// Heartbeat returns the configured heartbeat interval.
func (c *SessionConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartBtInt) * time.Second
}

// Settings builds engine.Settings from §6's behavioral keys.
func (c *SessionConfig) Settings() (engine.Settings, error) {
	s := engine.DefaultSettings()

	var err error
	if s.CheckLatency, err = c.CheckLatency.Bool(); err != nil {
		return s, err
	}
	if c.MaxLatency != 0 {
		s.MaxLatency = time.Duration(c.MaxLatency) * time.Second
	}
	if s.UseLocalTime, err = c.UseLocalTime.Bool(); err != nil {
		return s, err
	}
	s.MaxMessagesInResendRequest = c.MaxMessagesInResendRequest
	if s.SendRedundantResendRequests, err = c.SendRedundantResendRequests.Bool(); err != nil {
		return s, err
	}
	if s.RefreshOnLogon, err = c.RefreshOnLogon.Bool(); err != nil {
		return s, err
	}
	if s.ResetOnLogon, err = c.ResetOnLogon.Bool(); err != nil {
		return s, err
	}
	if s.ResetOnLogout, err = c.ResetOnLogout.Bool(); err != nil {
		return s, err
	}
	if s.ResetOnDisconnect, err = c.ResetOnDisconnect.Bool(); err != nil {
		return s, err
	}
	if s.RequiresOrigSendingTime, err = c.RequiresOrigSendingTime.Bool(); err != nil {
		return s, err
	}
	if s.IgnorePossDupResendRequests, err = c.IgnorePossDupResendRequests.Bool(); err != nil {
		return s, err
	}
	if s.EnableLastMsgSeqNumProcessed, err = c.EnableLastMsgSeqNumProcessed.Bool(); err != nil {
		return s, err
	}
	if s.SendLogoutBeforeDisconnectFromTimeout, err = c.SendLogoutBeforeDisconnectFromTimeout.Bool(); err != nil {
		return s, err
	}

	switch strings.ToLower(strings.TrimSpace(c.TimeStampPrecision)) {
	case "", "seconds":
		s.TimestampPrecision = field.PrecisionSeconds
	case "milliseconds":
		s.TimestampPrecision = field.PrecisionMillis
	case "microseconds":
		s.TimestampPrecision = field.PrecisionMicros
	case "nanoseconds":
		s.TimestampPrecision = field.PrecisionNanos
	default:
		return s, fmt.Errorf("invalid TimeStampPrecision %q", c.TimeStampPrecision)
	}
	return s, nil
}

// Package session implements the FIX session identity and runtime state
// described in §3/§4.6: the SessionID seven-tuple, SessionState's flags,
// counters, timers, and resend bookkeeping, and the timer predicates the
// engine consults on every tick.
package session

import "fmt"

// Wildcard matches any comp-id component, enabling dynamic acceptors
// (§3).
const Wildcard = "*"

// ID is the seven-field identity of a FIX session (§3). Equality is
// all-seven-fields exact, except that Wildcard on either side of a
// comp-id comparison matches anything (Matches, not ==).
type ID struct {
	BeginString      string
	SenderCompID     string
	SenderSubID      string
	SenderLocationID string
	TargetCompID     string
	TargetSubID      string
	TargetLocationID string
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%s%s%s->%s%s%s",
		id.BeginString,
		id.SenderCompID, subPart(id.SenderSubID), subPart(id.SenderLocationID),
		id.TargetCompID, subPart(id.TargetSubID), subPart(id.TargetLocationID))
}

func subPart(s string) string {
	if s == "" {
		return ""
	}
	return "/" + s
}

// Matches reports whether id matches other, treating Wildcard
// components on either side as matching anything (used by dynamic
// acceptors resolving an inbound Logon's counterparty id against a
// configured template).
func (id ID) Matches(other ID) bool {
	return id.BeginString == other.BeginString &&
		matchPart(id.SenderCompID, other.SenderCompID) &&
		matchPart(id.SenderSubID, other.SenderSubID) &&
		matchPart(id.SenderLocationID, other.SenderLocationID) &&
		matchPart(id.TargetCompID, other.TargetCompID) &&
		matchPart(id.TargetSubID, other.TargetSubID) &&
		matchPart(id.TargetLocationID, other.TargetLocationID)
}

func matchPart(a, b string) bool {
	return a == Wildcard || b == Wildcard || a == b
}

// Counterparty returns the ID for the other end of this session: the
// sender/target comp-ids (and sub/location ids) swapped. Outbound
// headers are built from the session's own ID, not from Counterparty.
func (id ID) Counterparty() ID {
	return ID{
		BeginString:      id.BeginString,
		SenderCompID:     id.TargetCompID,
		SenderSubID:      id.TargetSubID,
		SenderLocationID: id.TargetLocationID,
		TargetCompID:     id.SenderCompID,
		TargetSubID:      id.SenderSubID,
		TargetLocationID: id.SenderLocationID,
	}
}

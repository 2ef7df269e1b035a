// Package fixcodec implements the FIX wire codec (§4.4): tag=value|SOH
// framing, body-length and checksum computation, nested repeating-group
// parsing under dictionary guidance, and message structural validation.
package fixcodec

import "github.com/gravwell/fixengine/fixmap"

// SOH is the FIX field terminator.
const SOH = 0x01

// Message is a parsed or to-be-serialized FIX message (§3).
type Message struct {
	Header  *fixmap.FieldMap
	Body    *fixmap.FieldMap
	Trailer *fixmap.FieldMap

	// StructurallyValid is false when the first three header fields were
	// not 8, 9, 35 in that order (only checked when strict validation is
	// requested).
	StructurallyValid bool
	// FirstOutOfOrderTag records the first tag the parser found out of
	// required order, 0 if none.
	FirstOutOfOrderTag int
}

// NewMessage returns an empty message with initialized sections.
func NewMessage() *Message {
	return &Message{
		Header:            fixmap.NewFieldMap(),
		Body:              fixmap.NewFieldMap(),
		Trailer:           fixmap.NewFieldMap(),
		StructurallyValid: true,
	}
}

// headerTags are the well-known transport-header fields recognized
// regardless of dictionary, per §3.
var headerTags = map[fixmap.Tag]bool{
	8: true, 9: true, 35: true, 49: true, 56: true, 34: true, 52: true,
	43: true, 50: true, 57: true, 97: true, 115: true, 116: true, 122: true,
	128: true, 129: true, 142: true, 143: true, 144: true, 145: true,
	212: true, 213: true, 347: true, 369: true, 627: true, 1128: true,
	1129: true, 1156: true,
}

// trailerTags are the well-known trailer fields, per §3.
var trailerTags = map[fixmap.Tag]bool{
	93: true, 89: true, 10: true,
}

// HeaderPrefieldOrder is the fixed serialization order of the first
// three header fields, per §3's invariant.
var HeaderPrefieldOrder = []fixmap.Tag{8, 9, 35}

// TrailerPrefieldOrder places CheckSum last, per §3's invariant.
var TrailerPrefieldOrder = []fixmap.Tag{93, 89, 10}

const (
	sectionHeader = iota
	sectionBody
	sectionTrailer
)

// IsAdminMsgType reports whether msgType is one of the engine-handled
// administrative message types (§4.4): Heartbeat, Logon, TestRequest,
// ResendRequest, Reject, SequenceReset, Logout, XMLnonFIX ("n").
func IsAdminMsgType(msgType string) bool {
	switch msgType {
	case "0", "A", "1", "2", "3", "4", "5", "n":
		return true
	}
	return false
}

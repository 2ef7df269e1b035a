// Package fixerr defines the two error families described in spec §7:
// SessionRejectReason (protocol-visible, mapped to a Reject(3) message)
// and MessageParseError (codec-layer, surfaced during framing/parsing).
package fixerr

import "fmt"

// RejectCode enumerates SessionRejectReason per §7, with the numeric
// values FIX itself assigns to tag 373 (SessionRejectReason) from
// FIX.4.2 onward.
type RejectCode int

const (
	InvalidTagNumber RejectCode = iota
	RequiredTagMissing
	TagNotDefinedForThisMessageType
	UndefinedTag
	TagSpecifiedWithoutValue
	ValueIsIncorrect
	IncorrectDataFormatForValue
	DecryptionProblem
	SignatureProblem
	CompIDProblem
	SendingTimeAccuracyProblem
	InvalidMsgType
	XMLValidationError
	TagAppearsMoreThanOnce
	TagSpecifiedOutOfRequiredOrder
	IncorrectNumInGroupCountForRepeatingGroup
	NonDataValueIncludesFieldDelimiter
	Other
)

var rejectCodeNum = map[RejectCode]int{
	InvalidTagNumber:                           0,
	RequiredTagMissing:                         1,
	TagNotDefinedForThisMessageType:             2,
	UndefinedTag:                                3,
	TagSpecifiedWithoutValue:                    4,
	ValueIsIncorrect:                            5,
	IncorrectDataFormatForValue:                 6,
	DecryptionProblem:                           7,
	SignatureProblem:                            8,
	CompIDProblem:                               9,
	SendingTimeAccuracyProblem:                  10,
	InvalidMsgType:                              11,
	XMLValidationError:                          12,
	TagAppearsMoreThanOnce:                      13,
	TagSpecifiedOutOfRequiredOrder:               14,
	IncorrectNumInGroupCountForRepeatingGroup:    16,
	NonDataValueIncludesFieldDelimiter:           17,
	Other:                                        99,
}

// NumericValue returns tag 373's wire value for this reject code.
func (c RejectCode) NumericValue() int { return rejectCodeNum[c] }

// SessionRejectError is a protocol-visible validation failure, mapped to
// a Reject(3) message when begin_string >= FIX.4.2 (§7).
type SessionRejectError struct {
	Code    RejectCode
	RefTag  int // offending tag, 0 if not applicable
	Text    string
}

func (e *SessionRejectError) Error() string {
	if e.RefTag != 0 {
		return fmt.Sprintf("session-reject %v (tag %d): %s", e.Code, e.RefTag, e.Text)
	}
	return fmt.Sprintf("session-reject %v: %s", e.Code, e.Text)
}

func (c RejectCode) String() string {
	switch c {
	case InvalidTagNumber:
		return "InvalidTagNumber"
	case RequiredTagMissing:
		return "RequiredTagMissing"
	case TagNotDefinedForThisMessageType:
		return "TagNotDefinedForThisMessageType"
	case UndefinedTag:
		return "UndefinedTag"
	case TagSpecifiedWithoutValue:
		return "TagSpecifiedWithoutValue"
	case ValueIsIncorrect:
		return "ValueIsIncorrect"
	case IncorrectDataFormatForValue:
		return "IncorrectDataFormatForValue"
	case DecryptionProblem:
		return "DecryptionProblem"
	case SignatureProblem:
		return "SignatureProblem"
	case CompIDProblem:
		return "CompIDProblem"
	case SendingTimeAccuracyProblem:
		return "SendingTimeAccuracyProblem"
	case InvalidMsgType:
		return "InvalidMsgType"
	case XMLValidationError:
		return "XMLValidationError"
	case TagAppearsMoreThanOnce:
		return "TagAppearsMoreThanOnce"
	case TagSpecifiedOutOfRequiredOrder:
		return "TagSpecifiedOutOfRequiredOrder"
	case IncorrectNumInGroupCountForRepeatingGroup:
		return "IncorrectNumInGroupCountForRepeatingGroup"
	case NonDataValueIncludesFieldDelimiter:
		return "NonDataValueIncludesFieldDelimiter"
	default:
		return "Other"
	}
}

// NewSessionReject builds a SessionRejectError for code carrying refTag.
func NewSessionReject(code RejectCode, refTag int, text string) *SessionRejectError {
	return &SessionRejectError{Code: code, RefTag: refTag, Text: text}
}

// ParseErrorKind enumerates MessageParseError variants (§7).
type ParseErrorKind int

const (
	InvalidMessage ParseErrorKind = iota
	InvalidTagNumberParse
	FailedToFindEquals
	FailedToFindSoh
	GroupDelimiterTag
	RepeatedTagWithoutGroupDelimiter
	Malformed
)

// ParseError is the codec-layer error family (§7).
type ParseError struct {
	Kind    ParseErrorKind
	Tag     int
	Pos     int
	Counter int
	Message string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InvalidMessage:
		return fmt.Sprintf("invalid message: %s", e.Message)
	case InvalidTagNumberParse:
		return fmt.Sprintf("invalid tag number at raw %q", e.Message)
	case FailedToFindEquals:
		return fmt.Sprintf("failed to find '=' at position %d", e.Pos)
	case FailedToFindSoh:
		return fmt.Sprintf("failed to find SOH at position %d", e.Pos)
	case GroupDelimiterTag:
		return fmt.Sprintf("field %d appeared before group %d's delimiter", e.Tag, e.Counter)
	case RepeatedTagWithoutGroupDelimiter:
		return fmt.Sprintf("tag %d repeated within one occurrence of group %d without the delimiter reappearing", e.Tag, e.Counter)
	case Malformed:
		return fmt.Sprintf("malformed tag %d: %s", e.Tag, e.Message)
	}
	return "unknown parse error"
}

// ToSessionReject converts a ParseError to the SessionRejectError it maps
// to where applicable (§7): GroupDelimiterTag becomes Other, carrying the
// counter tag.
func (e *ParseError) ToSessionReject() *SessionRejectError {
	switch e.Kind {
	case GroupDelimiterTag, RepeatedTagWithoutGroupDelimiter:
		return NewSessionReject(Other, e.Counter, e.Error())
	case InvalidTagNumberParse:
		return NewSessionReject(InvalidTagNumber, e.Tag, e.Error())
	default:
		return NewSessionReject(Other, e.Tag, e.Error())
	}
}

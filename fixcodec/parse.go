package fixcodec

import (
	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/fixerr"
	"github.com/gravwell/fixengine/fixmap"
)

// groupScope is the minimal capability a DDMap/DDGroup exposes to the
// parser: "is this tag a plain field" and "is this tag a group counter,
// and if so what's its DDGroup".
type groupScope interface {
	IsField(tag fixmap.Tag) bool
	Group(tag fixmap.Tag) (*dictionary.DDGroup, bool)
}

// Parse decodes raw bytes into a Message tree (§4.4). sessionDD governs
// header/trailer layout (falling back to appDD's when nil); appDD
// governs the body layout for the message's MsgType. When
// strictValidate is true, the first three fields must be 8, 9, 35 in
// that order, and after parsing the declared body length and checksum
// are recomputed and compared to tags 9 and 10.
func Parse(raw []byte, sessionDD, appDD *dictionary.DataDictionary, strictValidate bool) (*Message, error) {
	msg := NewMessage()

	headerDD := appDD.Header
	trailerDD := appDD.Trailer
	if sessionDD != nil {
		headerDD = sessionDD.Header
		trailerDD = sessionDD.Trailer
	}

	var msgType string
	var bodyDD *dictionary.DDMap
	var lengthVal int
	haveLengthVal := false
	fieldIndex := 0
	trailerEntered := false

	pos := 0
	for pos < len(raw) {
		boundLen := -1
		if haveLengthVal {
			boundLen = lengthVal
			haveLengthVal = false
		}
		tag, value, newPos, err := ExtractField(raw, pos, boundLen)
		if err != nil {
			return msg, err
		}
		t := fixmap.Tag(tag)

		if fieldIndex < 3 {
			want := HeaderPrefieldOrder[fieldIndex]
			if t != want {
				msg.StructurallyValid = false
				if msg.FirstOutOfOrderTag == 0 {
					msg.FirstOutOfOrderTag = int(t)
				}
			}
		}
		fieldIndex++

		if t == 35 {
			msgType = string(value)
			if appDD != nil {
				bodyDD = appDD.Messages[msgType]
			}
		}

		section := classifySectionAware(t, headerDD, trailerDD, bodyDD, trailerEntered)
		if section == sectionTrailer {
			trailerEntered = true
		}

		var scope groupScope
		var dst *fixmap.FieldMap
		switch section {
		case sectionHeader:
			scope, dst = headerDD, msg.Header
		case sectionTrailer:
			scope, dst = trailerDD, msg.Trailer
		default:
			scope, dst = bodyDD, msg.Body
		}

		if scope != nil {
			if ddg, ok := scope.Group(t); ok {
				dst.Set(t, value)
				gPos, gerr := parseGroupOccurrences(raw, newPos, ddg, dst, t)
				if gerr != nil {
					return msg, gerr
				}
				pos = gPos
				continue
			}
		}

		if appDD != nil && appDD.LengthFields[t] {
			n, perr := parseUintBytes(value)
			if perr == nil {
				lengthVal = int(n)
				haveLengthVal = true
			}
		}

		dst.Set(t, value)
		pos = newPos
	}

	if strictValidate {
		if err := checkFraming(raw, msg); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// classifySectionAware extends classifySection with the dynamically
// resolved body dictionary and the "have we reached the trailer yet"
// state, since reaching any trailer field closes header-expectation
// (§4.4).
func classifySectionAware(tag fixmap.Tag, headerDD, trailerDD *dictionary.DDMap, bodyDD *dictionary.DDMap, trailerEntered bool) int {
	if trailerTags[tag] || (trailerDD != nil && trailerDD.IsField(tag)) {
		return sectionTrailer
	}
	if trailerEntered {
		// once in the trailer, only recognized trailer fields pull us back
		// out; anything else is tolerated as trailer (defensive default).
		return sectionTrailer
	}
	if headerTags[tag] || (headerDD != nil && headerDD.IsField(tag)) {
		return sectionHeader
	}
	_ = bodyDD
	return sectionBody
}

// parseGroupOccurrences parses occurrences of ddg starting at pos,
// writing each occurrence into dst via dst.AddGroup, and returns the
// position just past the group (§4.4).
func parseGroupOccurrences(raw []byte, pos int, ddg *dictionary.DDGroup, dst *fixmap.FieldMap, counterTag fixmap.Tag) (int, error) {
	var occ *fixmap.Group
	seenInOcc := make(map[fixmap.Tag]bool)

	for pos < len(raw) {
		tag, value, newPos, err := ExtractField(raw, pos, -1)
		if err != nil {
			// let the outer loop's eventual re-extraction surface this;
			// here we simply stop the group and hand control back.
			return pos, nil
		}
		t := fixmap.Tag(tag)

		if t == ddg.DelimiterTag {
			if occ != nil {
				dst.AddGroup(occ, false)
			}
			occ = fixmap.NewGroup(counterTag, ddg.DelimiterTag)
			seenInOcc = make(map[fixmap.Tag]bool)
			occ.Map.Set(t, value)
			seenInOcc[t] = true
			pos = newPos
			continue
		}

		if nested, ok := ddg.Group(t); ok && occ != nil {
			occ.Map.Set(t, value)
			p, err := parseGroupOccurrences(raw, newPos, nested, occ.Map, t)
			if err != nil {
				return pos, err
			}
			pos = p
			continue
		}

		if ddg.IsField(t) {
			if occ == nil {
				return pos, &fixerr.ParseError{Kind: fixerr.GroupDelimiterTag, Tag: int(t), Counter: int(counterTag)}
			}
			if seenInOcc[t] {
				return pos, &fixerr.ParseError{Kind: fixerr.RepeatedTagWithoutGroupDelimiter, Tag: int(t), Counter: int(counterTag)}
			}
			occ.Map.Set(t, value)
			seenInOcc[t] = true
			pos = newPos
			continue
		}

		// field doesn't belong to this group: end of group, don't consume it.
		break
	}
	if occ != nil {
		dst.AddGroup(occ, false)
	}
	return pos, nil
}

func parseUintBytes(raw []byte) (uint64, error) {
	var n uint64
	if len(raw) == 0 {
		return 0, &fixerr.ParseError{Kind: fixerr.Malformed, Message: "empty length"}
	}
	for _, b := range raw {
		if b < '0' || b > '9' {
			return 0, &fixerr.ParseError{Kind: fixerr.Malformed, Message: "non-digit length"}
		}
		n = n*10 + uint64(b-'0')
	}
	return n, nil
}

// checkFraming recomputes body length and checksum and compares them to
// the declared tags 9 and 10 (§4.4).
func checkFraming(raw []byte, msg *Message) error {
	declaredLen, err := msg.Header.Get(9)
	if err != nil {
		return &fixerr.ParseError{Kind: fixerr.InvalidMessage, Message: "missing BodyLength"}
	}
	declaredSum, err := msg.Trailer.Get(10)
	if err != nil {
		return &fixerr.ParseError{Kind: fixerr.InvalidMessage, Message: "missing CheckSum"}
	}

	wantLen, err := parseUintBytes(declaredLen)
	if err != nil {
		return &fixerr.ParseError{Kind: fixerr.InvalidMessage, Message: "unparsable BodyLength"}
	}
	gotLen := bodyLength(raw)
	if int(wantLen) != gotLen {
		return &fixerr.ParseError{Kind: fixerr.InvalidMessage, Message: "BodyLength mismatch"}
	}

	gotSum := checksumOf(raw)
	wantSum := string(declaredSum)
	if formatChecksum(gotSum) != wantSum {
		return &fixerr.ParseError{Kind: fixerr.InvalidMessage, Message: "Expected CheckSum=" + formatChecksum(gotSum)}
	}
	return nil
}

// bodyLength returns the byte count between the end of "9=n\x01" and the
// start of "10=" (§4.4's framing definition), computed directly off the
// raw wire bytes rather than the parsed tree so it is immune to any
// parser normalization.
func bodyLength(raw []byte) int {
	bodyStart := indexByte(raw, 0, SOH) // end of 8=...
	if bodyStart < 0 {
		return 0
	}
	bodyStart = indexByte(raw, bodyStart+1, SOH) // end of 9=...
	if bodyStart < 0 {
		return 0
	}
	bodyStart++
	tailStart := lastIndexTag10(raw)
	if tailStart < 0 || tailStart < bodyStart {
		return 0
	}
	return tailStart - bodyStart
}

func lastIndexTag10(raw []byte) int {
	for i := len(raw) - 3; i >= 0; i-- {
		if raw[i] == '1' && raw[i+1] == '0' && raw[i+2] == '=' && (i == 0 || raw[i-1] == SOH) {
			return i
		}
	}
	return -1
}

func checksumOf(raw []byte) int {
	tailStart := lastIndexTag10(raw)
	if tailStart < 0 {
		tailStart = len(raw)
	}
	var sum int
	for i := 0; i < tailStart; i++ {
		sum += int(raw[i])
	}
	return sum % 256
}

func formatChecksum(sum int) string {
	digits := [3]byte{}
	v := sum % 256
	digits[2] = byte('0' + v%10)
	v /= 10
	digits[1] = byte('0' + v%10)
	v /= 10
	digits[0] = byte('0' + v%10)
	return string(digits[:])
}

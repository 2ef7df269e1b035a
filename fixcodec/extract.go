package fixcodec

import (
	"github.com/gravwell/fixengine/fixerr"
)

// ExtractField scans buf starting at pos for one "tag=value" triple
// terminated by SOH (§4.4's Extract-field). When boundLen >= 0, the
// value is instead taken as exactly boundLen raw bytes (enabling binary
// payloads like RawData(96) following RawDataLength(95)), and a single
// trailing SOH is still consumed.
func ExtractField(buf []byte, pos int, boundLen int) (tag int, value []byte, newPos int, err error) {
	eq := indexByte(buf, pos, '=')
	if eq < 0 {
		return 0, nil, pos, &fixerr.ParseError{Kind: fixerr.FailedToFindEquals, Pos: pos}
	}
	tag, err = parseSignedInt(buf[pos:eq])
	if err != nil {
		return 0, nil, pos, &fixerr.ParseError{Kind: fixerr.InvalidTagNumberParse, Message: string(buf[pos:eq])}
	}

	valStart := eq + 1
	if boundLen >= 0 {
		valEnd := valStart + boundLen
		if valEnd >= len(buf) || buf[valEnd] != SOH {
			return 0, nil, pos, &fixerr.ParseError{Kind: fixerr.Malformed, Tag: tag, Message: "bounded value not terminated by SOH"}
		}
		return tag, buf[valStart:valEnd], valEnd + 1, nil
	}

	soh := indexByte(buf, valStart, SOH)
	if soh < 0 {
		return 0, nil, pos, &fixerr.ParseError{Kind: fixerr.FailedToFindSoh, Pos: valStart}
	}
	return tag, buf[valStart:soh], soh + 1, nil
}

func indexByte(buf []byte, from int, b byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == b {
			return i
		}
	}
	return -1
}

func parseSignedInt(raw []byte) (int, error) {
	if len(raw) == 0 {
		return 0, &fixerr.ParseError{Kind: fixerr.Malformed, Message: "empty tag"}
	}
	neg := false
	i := 0
	if raw[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(raw) {
		return 0, &fixerr.ParseError{Kind: fixerr.Malformed, Message: "empty tag digits"}
	}
	var v int
	for ; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, &fixerr.ParseError{Kind: fixerr.Malformed, Message: "non-digit in tag"}
		}
		v = v*10 + int(raw[i]-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

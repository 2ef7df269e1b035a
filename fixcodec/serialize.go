package fixcodec

// Serialize encodes msg to wire bytes, computing BodyLength(9) and
// CheckSum(10) per §4.4. msg.Header must already carry BeginString(8)
// and MsgType(35); this function sets BodyLength(9) and
// msg.Trailer's CheckSum(10).
func Serialize(msg *Message) []byte {
	bodyLen := msg.Header.ByteLenExcludingFraming() + msg.Body.ByteLenExcludingFraming() + msg.Trailer.ByteLenExcludingFraming()
	msg.Header.Set(9, []byte(itoa(bodyLen)))

	headerStr := msg.Header.Serialize(HeaderPrefieldOrder)
	bodyStr := msg.Body.Serialize(nil)

	sum := (msg.Header.ChecksumSum() + msg.Body.ChecksumSum() + msg.Trailer.ChecksumSum()) % 256
	msg.Trailer.Set(10, []byte(formatChecksum(sum)))
	trailerStr := msg.Trailer.Serialize(TrailerPrefieldOrder)

	out := make([]byte, 0, len(headerStr)+len(bodyStr)+len(trailerStr))
	out = append(out, headerStr...)
	out = append(out, bodyStr...)
	out = append(out, trailerStr...)
	return out
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

package dictionary

import "github.com/gravwell/fixengine/field"

// parseForType validates that raw parses under typeName, returning the
// decoded value as interface{} for callers that want it (validation
// itself only cares about the error).
func parseForType(typeName string, raw []byte) (interface{}, error) {
	switch typeName {
	case "STRING", "MULTIPLEVALUESTRING", "MULTIPLESTRINGVALUE", "COUNTRY", "CURRENCY", "EXCHANGE", "MONTHYEAR", "UTCDATEONLY":
		return field.ParseString(raw)
	case "CHAR":
		return field.ParseChar(raw)
	case "MULTIPLECHARVALUE":
		// Space-separated single-char tokens (e.g. "A B"); validate each
		// token rather than the whole value, the way ValueInEnum does for
		// multi-value enums.
		for _, tok := range splitSpaces(raw) {
			if _, err := field.ParseChar(tok); err != nil {
				return nil, err
			}
		}
		return field.ParseString(raw)
	case "INT", "SEQNUM", "NUMINGROUP", "DAYOFMONTH":
		return field.ParseInt(raw)
	case "LENGTH":
		return field.ParseUint(raw)
	case "DECIMAL", "FLOAT", "QTY", "PRICE", "PRICEOFFSET", "AMT", "PERCENTAGE":
		return field.ParseFloat(raw)
	case "BOOLEAN":
		return field.ParseBool(raw)
	case "DATE", "LOCALMKTDATE":
		return field.ParseDate(raw)
	case "TIME", "UTCTIMEONLY":
		return field.ParseTimeOnly(raw)
	case "DATETIME", "UTCTIMESTAMP":
		return field.ParseUTCTimestamp(raw)
	case "DATA":
		return raw, nil // opaque bytes, no format constraint
	default:
		// Unrecognized declared type: treat as opaque string rather than
		// rejecting, matching the dictionary's tolerance of vendor types.
		return field.ParseString(raw)
	}
}

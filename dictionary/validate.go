package dictionary

import (
	"fmt"

	"github.com/gravwell/fixengine/fixerr"
	"github.com/gravwell/fixengine/fixmap"
)

// Validate implements §4.3's validate(message, session_dd?, app_dd,
// begin_string, msg_type) algorithm. header/body/trailer are the three
// sections of the parsed message; outOfOrderTag is the first tag the
// codec found out of order while parsing (0 if none).
func Validate(header, body, trailer *fixmap.FieldMap, sessionDD, appDD *DataDictionary, beginString, msgType string, outOfOrderTag int) error {
	if sessionDD != nil && sessionDD.Version != "" && sessionDD.Version != beginString {
		return fmt.Errorf("dictionary: unsupported version %q (expected %q)", beginString, sessionDD.Version)
	}

	checkOrder := (sessionDD != nil && sessionDD.Flags.CheckFieldsOutOfOrder) || appDD.Flags.CheckFieldsOutOfOrder
	if checkOrder && outOfOrderTag != 0 {
		return fixerr.NewSessionReject(fixerr.TagSpecifiedOutOfRequiredOrder, outOfOrderTag, "field out of required order")
	}

	mm, ok := appDD.Messages[msgType]
	if !ok {
		return fixerr.NewSessionReject(fixerr.InvalidMsgType, 35, fmt.Sprintf("unknown msg type %q", msgType))
	}

	hdrDD := appDD.Header
	trlDD := appDD.Trailer
	if sessionDD != nil {
		hdrDD = sessionDD.Header
		trlDD = sessionDD.Trailer
	}

	if err := checkRequired(hdrDD, header); err != nil {
		return err
	}
	if err := checkRequired(mm, body); err != nil {
		return err
	}
	if err := checkRequired(trlDD, trailer); err != nil {
		return err
	}

	flags := appDD.Flags
	if err := validateSection(header, hdrDD, flags, true); err != nil {
		return err
	}
	if err := validateSection(body, mm, flags, false); err != nil {
		return err
	}
	if err := validateSection(trailer, trlDD, flags, true); err != nil {
		return err
	}
	return nil
}

func checkRequired(dd *DDMap, m *fixmap.FieldMap) error {
	for tag := range dd.RequiredFields {
		if dd.IsGroup(tag) {
			if m.GroupCount(tag) == 0 && !m.IsSet(tag) {
				return fixerr.NewSessionReject(fixerr.RequiredTagMissing, int(tag), "required group missing")
			}
			continue
		}
		if !m.IsSet(tag) {
			return fixerr.NewSessionReject(fixerr.RequiredTagMissing, int(tag), "required field missing")
		}
	}
	return nil
}

// validateSection applies §4.3 step 5's per-field checks to every field
// in m, then recurses into groups per step 6. headerOrTrailer sections
// skip the "declared for this msg type" check, since header/trailer
// fields are not declared per message type.
func validateSection(m *fixmap.FieldMap, dd *DDMap, flags Flags, headerOrTrailer bool) error {
	for _, f := range m.Entries() {
		if flags.CheckFieldsHaveValues && len(f.Value) == 0 {
			return fixerr.NewSessionReject(fixerr.TagSpecifiedWithoutValue, int(f.Tag), "field has no value")
		}
		if !flags.CheckUserDefinedFields && f.Tag >= USERMin {
			continue
		}
		ddf, known := dd.FieldsByTag[f.Tag]
		if !known {
			if flags.AllowUnknownMessageFields {
				continue
			}
			return fixerr.NewSessionReject(fixerr.InvalidTagNumber, int(f.Tag), "unknown tag")
		}
		if _, err := parseForType(ddf.TypeName, f.Value); err != nil {
			return fixerr.NewSessionReject(fixerr.IncorrectDataFormatForValue, int(f.Tag), err.Error())
		}
		if !ddf.ValueInEnum(f.Value) {
			return fixerr.NewSessionReject(fixerr.ValueIsIncorrect, int(f.Tag), "value not in enumerated set")
		}
		if !headerOrTrailer && !dd.IsField(f.Tag) {
			return fixerr.NewSessionReject(fixerr.TagNotDefinedForThisMessageType, int(f.Tag), "field not defined for this message type")
		}
	}

	for _, counterTag := range m.GroupTags() {
		ddg, ok := dd.Group(counterTag)
		if !ok {
			continue // unknown groups are not re-validated (§4.3 step 6)
		}
		countVal, err := m.Get(counterTag)
		if err == nil {
			if n, perr := parseUint(countVal); perr == nil && int(n) != m.GroupCount(counterTag) {
				return fixerr.NewSessionReject(fixerr.IncorrectNumInGroupCountForRepeatingGroup, int(counterTag), "NumInGroup does not match actual count")
			}
		}
		for i := 1; i <= m.GroupCount(counterTag); i++ {
			g, _ := m.GetGroup(i, counterTag)
			if err := validateSection(g.Map, ddg.DDMap, flags, headerOrTrailer); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseUint(raw []byte) (uint64, error) {
	var n uint64
	for _, b := range raw {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("not a uint: %q", raw)
		}
		n = n*10 + uint64(b-'0')
	}
	return n, nil
}

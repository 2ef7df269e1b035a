// Package dictionary implements the FIX data dictionary (§3/§4.3): a
// declarative description of fields, enumerations, required fields per
// message type, and repeating-group layouts, used to both parse and
// validate messages.
package dictionary

import (
	"errors"
	"fmt"

	"github.com/gravwell/fixengine/fixmap"
)

// Tag is an alias of fixmap.Tag so callers don't need to import both
// packages for the common case.
type Tag = fixmap.Tag

// USERMin is the first tag number reserved for user-defined fields.
const USERMin Tag = 5000

// DDField describes one dictionary field entry (§3).
type DDField struct {
	Tag              Tag
	Name             string
	TypeName         string
	Enums            map[string]string // raw value -> description
	IsMultiValueEnum bool
}

// IsLengthField reports whether this field is a LENGTH field other than
// BodyLength, per §3's definition of "length field".
func (f *DDField) IsLengthField() bool {
	return f.TypeName == "LENGTH" && f.Name != "BodyLength"
}

// ValueInEnum checks a raw field value against the declared enum set,
// splitting on spaces first when IsMultiValueEnum is set.
func (f *DDField) ValueInEnum(raw []byte) bool {
	if len(f.Enums) == 0 {
		return true // no enum constraint declared
	}
	if f.IsMultiValueEnum {
		for _, tok := range splitSpaces(raw) {
			if _, ok := f.Enums[string(tok)]; !ok {
				return false
			}
		}
		return true
	}
	_, ok := f.Enums[string(raw)]
	return ok
}

func splitSpaces(raw []byte) [][]byte {
	var out [][]byte
	start := -1
	for i, b := range raw {
		if b == ' ' {
			if start >= 0 {
				out = append(out, raw[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, raw[start:])
	}
	return out
}

// DDGroup is a DDMap plus the counter/delimiter tags and required flag
// that describe a repeating group (§3).
type DDGroup struct {
	*DDMap
	CounterTag   Tag
	DelimiterTag Tag
	Required     bool
}

// DDMap describes the field layout of a message, header, trailer, or
// group occurrence (§3). The XML parser threads maps and groups through
// this one capability set, per DESIGN NOTES §9.
type DDMap struct {
	Name            string
	Admin           bool
	FieldsByTag     map[Tag]*DDField
	GroupsByCounter map[Tag]*DDGroup
	RequiredFields  map[Tag]bool
}

func newDDMap(name string) *DDMap {
	return &DDMap{
		Name:            name,
		FieldsByTag:     make(map[Tag]*DDField),
		GroupsByCounter: make(map[Tag]*DDGroup),
		RequiredFields:  make(map[Tag]bool),
	}
}

// IsField reports whether tag is a plain (non-group) field of this map.
func (m *DDMap) IsField(tag Tag) bool {
	_, ok := m.FieldsByTag[tag]
	return ok
}

// IsGroup reports whether tag is a group counter of this map.
func (m *DDMap) IsGroup(tag Tag) bool {
	_, ok := m.GroupsByCounter[tag]
	return ok
}

// Group returns the DDGroup registered under counterTag, if any.
func (m *DDMap) Group(counterTag Tag) (*DDGroup, bool) {
	g, ok := m.GroupsByCounter[counterTag]
	return g, ok
}

// Flags controls which optional per-message validations are applied
// (§3's DataDictionary.flags).
type Flags struct {
	CheckFieldsHaveValues    bool
	CheckFieldsOutOfOrder    bool
	CheckUserDefinedFields   bool
	AllowUnknownMessageFields bool
}

// DataDictionary is the fully resolved, construct-once, read-many
// dictionary for one FIX version (§3).
type DataDictionary struct {
	Version      string
	Header       *DDMap
	Trailer      *DDMap
	Messages     map[string]*DDMap // keyed by MsgType code
	FieldsByTag  map[Tag]*DDField
	FieldsByName map[string]*DDField
	LengthFields map[Tag]bool
	Flags        Flags
}

var (
	// ErrUnsupportedRootType is returned when the XML root is neither
	// type="FIX" nor type="FIXT".
	ErrUnsupportedRootType = errors.New("dictionary: unsupported root type")
)

// NewDataDictionary returns an empty dictionary ready for Load.
func NewDataDictionary() *DataDictionary {
	return &DataDictionary{
		Header:       newDDMap("header"),
		Trailer:      newDDMap("trailer"),
		Messages:     make(map[string]*DDMap),
		FieldsByTag:  make(map[Tag]*DDField),
		FieldsByName: make(map[string]*DDField),
		LengthFields: make(map[Tag]bool),
	}
}

func (d *DataDictionary) String() string {
	return fmt.Sprintf("DataDictionary(%s, %d messages, %d fields)", d.Version, len(d.Messages), len(d.FieldsByTag))
}

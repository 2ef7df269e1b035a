package dictionary

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// xmlFix is the root <fix> element.
type xmlFix struct {
	XMLName    xml.Name       `xml:"fix"`
	Type       string         `xml:"type,attr"`
	Major      string         `xml:"major,attr"`
	Minor      string         `xml:"minor,attr"`
	Header     xmlFieldBlock  `xml:"header"`
	Trailer    xmlFieldBlock  `xml:"trailer"`
	Fields     xmlFieldsBlock `xml:"fields"`
	Components xmlComponents  `xml:"components"`
	Messages   xmlMessages    `xml:"messages"`
}

type xmlFieldsBlock struct {
	Field []xmlFieldDecl `xml:"field"`
}

type xmlFieldDecl struct {
	Number string     `xml:"number,attr"`
	Name   string     `xml:"name,attr"`
	Type   string     `xml:"type,attr"`
	Value  []xmlValue `xml:"value"`
}

type xmlValue struct {
	Enum        string `xml:"enum,attr"`
	Description string `xml:"description,attr"`
}

type xmlComponents struct {
	Component []xmlComponent `xml:"component"`
}

type xmlComponent struct {
	Name  string       `xml:"name,attr"`
	Field []xmlMember  `xml:"field"`
	Group []xmlGroup   `xml:"group"`
	Comp  []xmlCompRef `xml:"component"`
}

type xmlCompRef struct {
	Name     string `xml:"name,attr"`
	Required string `xml:"required,attr"`
}

type xmlMember struct {
	Name     string `xml:"name,attr"`
	Required string `xml:"required,attr"`
}

type xmlGroup struct {
	Name     string       `xml:"name,attr"`
	Required string       `xml:"required,attr"`
	Field    []xmlMember  `xml:"field"`
	Group    []xmlGroup   `xml:"group"`
	Comp     []xmlCompRef `xml:"component"`
}

type xmlFieldBlock struct {
	Field []xmlMember `xml:"field"`
	Group []xmlGroup  `xml:"group"`
	Comp  []xmlCompRef `xml:"component"`
}

type xmlMessages struct {
	Message []xmlMessage `xml:"message"`
}

type xmlMessage struct {
	Name    string       `xml:"name,attr"`
	MsgType string       `xml:"msgtype,attr"`
	MsgCat  string       `xml:"msgcat,attr"`
	Field   []xmlMember  `xml:"field"`
	Group   []xmlGroup   `xml:"group"`
	Comp    []xmlCompRef `xml:"component"`
}

// LoadFile reads and parses a QuickFIX-style XML data dictionary file.
func LoadFile(path string) (*DataDictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a data dictionary from r (§4.3's Loading algorithm).
func Load(r io.Reader) (*DataDictionary, error) {
	var root xmlFix
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if root.Type != "FIX" && root.Type != "FIXT" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRootType, root.Type)
	}

	dd := NewDataDictionary()
	dd.Version = fmt.Sprintf("%s.%s.%s", root.Type, root.Major, root.Minor)

	for _, fd := range root.Fields.Field {
		ddf, err := buildDDField(fd)
		if err != nil {
			return nil, err
		}
		dd.FieldsByTag[ddf.Tag] = ddf
		dd.FieldsByName[ddf.Name] = ddf
		if ddf.IsLengthField() {
			dd.LengthFields[ddf.Tag] = true
		}
	}

	comps := make(map[string]xmlComponent, len(root.Components.Component))
	for _, c := range root.Components.Component {
		comps[c.Name] = c
	}

	if err := populateFieldBlock(dd.Header, root.Header.Field, root.Header.Group, root.Header.Comp, dd, comps, true); err != nil {
		return nil, err
	}
	if err := populateFieldBlock(dd.Trailer, root.Trailer.Field, root.Trailer.Group, root.Trailer.Comp, dd, comps, true); err != nil {
		return nil, err
	}

	for _, m := range root.Messages.Message {
		mm := newDDMap(m.Name)
		mm.Admin = m.MsgCat == "admin"
		if err := populateFieldBlock(mm, m.Field, m.Group, m.Comp, dd, comps, true); err != nil {
			return nil, err
		}
		dd.Messages[m.MsgType] = mm
	}

	return dd, nil
}

func buildDDField(fd xmlFieldDecl) (*DDField, error) {
	var tag Tag
	if _, err := fmt.Sscanf(fd.Number, "%d", &tag); err != nil {
		return nil, fmt.Errorf("dictionary: bad field number %q: %w", fd.Number, err)
	}
	ddf := &DDField{
		Tag:      tag,
		Name:     fd.Name,
		TypeName: fd.Type,
		Enums:    make(map[string]string, len(fd.Value)),
	}
	for _, v := range fd.Value {
		ddf.Enums[v.Enum] = v.Description
	}
	switch ddf.TypeName {
	case "MULTIPLEVALUESTRING", "MULTIPLESTRINGVALUE", "MULTIPLECHARVALUE":
		ddf.IsMultiValueEnum = true
	}
	return ddf, nil
}

func isRequired(s string) bool { return s == "Y" }

// populateFieldBlock resolves <field>/<group>/<component> children into
// dst, expanding component references inline. parentRequired downgrades a
// required="Y" member to not-required when the enclosing component
// itself was referenced as not-required (§4.3).
func populateFieldBlock(dst *DDMap, fields []xmlMember, groups []xmlGroup, comps []xmlCompRef, dd *DataDictionary, compDefs map[string]xmlComponent, parentRequired bool) error {
	for _, fm := range fields {
		ddf, ok := dd.FieldsByName[fm.Name]
		if !ok {
			return fmt.Errorf("dictionary: undefined field %q referenced", fm.Name)
		}
		dst.FieldsByTag[ddf.Tag] = ddf
		if isRequired(fm.Required) && parentRequired {
			dst.RequiredFields[ddf.Tag] = true
		}
	}
	for _, g := range groups {
		ddg, err := buildDDGroup(g, dd, compDefs, parentRequired)
		if err != nil {
			return err
		}
		dst.GroupsByCounter[ddg.CounterTag] = ddg
		if ddg.Required && parentRequired {
			dst.RequiredFields[ddg.CounterTag] = true
		}
	}
	for _, c := range comps {
		def, ok := compDefs[c.Name]
		if !ok {
			return fmt.Errorf("dictionary: undefined component %q referenced", c.Name)
		}
		compRequired := isRequired(c.Required) && parentRequired
		if err := populateFieldBlock(dst, def.Field, def.Group, def.Comp, dd, compDefs, compRequired); err != nil {
			return err
		}
	}
	return nil
}

func buildDDGroup(g xmlGroup, dd *DataDictionary, compDefs map[string]xmlComponent, parentRequired bool) (*DDGroup, error) {
	counterField, ok := dd.FieldsByName[g.Name]
	if !ok {
		return nil, fmt.Errorf("dictionary: undefined group counter field %q", g.Name)
	}
	inner := newDDMap(g.Name)
	delim, err := firstDelimiterTag(g, dd, compDefs)
	if err != nil {
		return nil, err
	}
	required := isRequired(g.Required) && parentRequired
	if err := populateFieldBlock(inner, g.Field, g.Group, g.Comp, dd, compDefs, required); err != nil {
		return nil, err
	}
	return &DDGroup{
		DDMap:        inner,
		CounterTag:   counterField.Tag,
		DelimiterTag: delim,
		Required:     isRequired(g.Required),
	}, nil
}

// firstDelimiterTag returns the tag the group uses as its delimiter
// (§3/§4.3): the first <field> child of the group; if it has none, the
// first field of the first referenced component that declares fields
// directly; failing that, the delimiter of the first nested group.
// Declaration order between <field>, <component> and <group> children
// is not tracked, so a <field> wins even when a component or group is
// declared before it.
func firstDelimiterTag(g xmlGroup, dd *DataDictionary, compDefs map[string]xmlComponent) (Tag, error) {
	if len(g.Field) > 0 {
		ddf, ok := dd.FieldsByName[g.Field[0].Name]
		if !ok {
			return 0, fmt.Errorf("dictionary: undefined field %q", g.Field[0].Name)
		}
		return ddf.Tag, nil
	}
	for _, c := range g.Comp {
		def, ok := compDefs[c.Name]
		if !ok {
			return 0, fmt.Errorf("dictionary: undefined component %q", c.Name)
		}
		if len(def.Field) > 0 {
			ddf, ok := dd.FieldsByName[def.Field[0].Name]
			if !ok {
				return 0, fmt.Errorf("dictionary: undefined field %q", def.Field[0].Name)
			}
			return ddf.Tag, nil
		}
	}
	if len(g.Group) > 0 {
		return firstDelimiterTag(g.Group[0], dd, compDefs)
	}
	return 0, fmt.Errorf("dictionary: group %q has no delimiter field", g.Name)
}

package fixmap

import "sort"

// FieldMap is an ordered/indexed container of fields and nested repeating
// groups (§3). Insertion order is not semantic; serialization order is
// determined by section order combined with dictionary-declared group
// positions (§4.2).
type FieldMap struct {
	fields    map[Tag]Field
	groups    map[Tag][]*Group
	groupTags []Tag // order in which counter tags were first registered
	repeated  []Tag // diagnostic: tags seen more than once during parse
}

// NewFieldMap returns an empty FieldMap.
func NewFieldMap() *FieldMap {
	return &FieldMap{
		fields: make(map[Tag]Field),
		groups: make(map[Tag][]*Group),
	}
}

// Set stores value under tag, overwriting any existing value.
func (m *FieldMap) Set(tag Tag, value []byte) {
	m.SetWithOverwrite(Field{Tag: tag, Value: value}, true)
}

// SetWithOverwrite stores f, returning false without modifying the map if
// the tag is already set and overwrite is false.
func (m *FieldMap) SetWithOverwrite(f Field, overwrite bool) bool {
	if _, exists := m.fields[f.Tag]; exists {
		if !overwrite {
			return false
		}
		m.markRepeated(f.Tag)
	}
	m.fields[f.Tag] = f
	return true
}

func (m *FieldMap) markRepeated(tag Tag) {
	for _, t := range m.repeated {
		if t == tag {
			return
		}
	}
	m.repeated = append(m.repeated, tag)
}

// Get returns the raw bytes for tag, or ErrFieldNotFound.
func (m *FieldMap) Get(tag Tag) ([]byte, error) {
	f, ok := m.fields[tag]
	if !ok {
		return nil, ErrFieldNotFound
	}
	return f.Value, nil
}

// IsSet reports whether tag has a value in this map (fields only, not
// groups).
func (m *FieldMap) IsSet(tag Tag) bool {
	_, ok := m.fields[tag]
	return ok
}

// Remove deletes tag's field, if present.
func (m *FieldMap) Remove(tag Tag) {
	delete(m.fields, tag)
}

// RepeatedTags returns tags that were set more than once; a valid message
// has none (§3).
func (m *FieldMap) RepeatedTags() []Tag {
	return m.repeated
}

// AddGroup appends g to the occurrence list for g.CounterTag. When
// autoIncrementCounter is true, the counter field is overwritten with the
// post-append occurrence count (§4.2).
func (m *FieldMap) AddGroup(g *Group, autoIncrementCounter bool) {
	if _, ok := m.groups[g.CounterTag]; !ok {
		m.groupTags = append(m.groupTags, g.CounterTag)
	}
	m.groups[g.CounterTag] = append(m.groups[g.CounterTag], g)
	if autoIncrementCounter {
		m.Set(g.CounterTag, []byte(itoa(len(m.groups[g.CounterTag]))))
	}
}

// GroupCount returns the number of occurrences registered under counterTag.
func (m *FieldMap) GroupCount(counterTag Tag) int {
	return len(m.groups[counterTag])
}

// GetGroup returns the 1-based idx'th occurrence under counterTag.
func (m *FieldMap) GetGroup(idx int, counterTag Tag) (*Group, error) {
	occs := m.groups[counterTag]
	if idx < 1 || idx > len(occs) {
		return nil, ErrFieldNotFound
	}
	return occs[idx-1], nil
}

// RemoveGroup deletes the 1-based idx'th occurrence under counterTag.
func (m *FieldMap) RemoveGroup(idx int, counterTag Tag) error {
	occs := m.groups[counterTag]
	if idx < 1 || idx > len(occs) {
		return ErrFieldNotFound
	}
	m.groups[counterTag] = append(occs[:idx-1], occs[idx:]...)
	return nil
}

// ReplaceGroup overwrites the 1-based idx'th occurrence under counterTag.
func (m *FieldMap) ReplaceGroup(idx int, counterTag Tag, g *Group) error {
	occs := m.groups[counterTag]
	if idx < 1 || idx > len(occs) {
		return ErrFieldNotFound
	}
	occs[idx-1] = g
	return nil
}

// GroupTags returns the counter tags with at least one registered group,
// in first-registration order.
func (m *FieldMap) GroupTags() []Tag {
	out := make([]Tag, len(m.groupTags))
	copy(out, m.groupTags)
	return out
}

// Entries returns every field currently set, in ascending tag order. This
// is diagnostic/iteration support, not a serialization order.
func (m *FieldMap) Entries() []Field {
	tags := make([]Tag, 0, len(m.fields))
	for t := range m.fields {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	out := make([]Field, 0, len(tags))
	for _, t := range tags {
		out = append(out, m.fields[t])
	}
	return out
}

// Clear empties the map of fields, groups, and diagnostics.
func (m *FieldMap) Clear() {
	m.fields = make(map[Tag]Field)
	m.groups = make(map[Tag][]*Group)
	m.groupTags = nil
	m.repeated = nil
}

// ByteLenExcludingFraming sums "tag=value\x01" byte lengths of every field
// except tags 8, 9, and 10, plus the recursive contribution of every
// nested group occurrence (§4.2).
func (m *FieldMap) ByteLenExcludingFraming() int {
	var n int
	for tag, f := range m.fields {
		if tag == 8 || tag == 9 || tag == 10 {
			continue
		}
		n += f.byteLen()
	}
	for _, occs := range m.groups {
		for _, g := range occs {
			n += g.Map.ByteLenExcludingFraming()
		}
	}
	return n
}

// ChecksumSum is the arithmetic byte sum over every "tag=value\x01" field
// except tag 10, plus the recursive contribution of nested groups (§4.2).
func (m *FieldMap) ChecksumSum() int {
	var sum int
	for tag, f := range m.fields {
		if tag == 10 {
			continue
		}
		sum += fieldChecksum(f)
	}
	for _, occs := range m.groups {
		for _, g := range occs {
			sum += g.Map.ChecksumSum()
		}
	}
	return sum
}

func fieldChecksum(f Field) int {
	var sum int
	for _, b := range itoa(int(f.Tag)) {
		sum += int(b)
	}
	sum += int('=')
	for _, b := range f.Value {
		sum += int(b)
	}
	sum += 1 // SOH
	return sum
}

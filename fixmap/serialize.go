package fixmap

import "strings"

// Serialize writes every field and nested group to a "tag=value\x01"
// string. Fields named in prefieldOrder that are set are emitted first, in
// that order; immediately after a counter tag with registered groups,
// each occurrence is emitted in insertion order. Every remaining
// non-counter field follows (ascending tag order), then every remaining
// counter tag and its occurrences. A group occurrence's own serialization
// treats its delimiter tag as the sole prefield (§4.2).
func (m *FieldMap) Serialize(prefieldOrder []Tag) string {
	var b strings.Builder
	emittedField := make(map[Tag]bool)
	emittedGroup := make(map[Tag]bool)
	isCounter := make(map[Tag]bool, len(m.groupTags))
	for _, t := range m.groupTags {
		isCounter[t] = true
	}

	writeField := func(f Field) {
		b.WriteString(itoa(int(f.Tag)))
		b.WriteByte('=')
		b.Write(f.Value)
		b.WriteByte(1)
	}
	writeGroupOccurrences := func(counterTag Tag) {
		for _, g := range m.groups[counterTag] {
			b.WriteString(g.Map.Serialize([]Tag{g.DelimiterTag}))
		}
		emittedGroup[counterTag] = true
	}

	for _, tag := range prefieldOrder {
		if f, ok := m.fields[tag]; ok && !emittedField[tag] {
			writeField(f)
			emittedField[tag] = true
		}
		if isCounter[tag] && !emittedGroup[tag] {
			writeGroupOccurrences(tag)
		}
	}

	for _, f := range m.Entries() {
		if emittedField[f.Tag] || isCounter[f.Tag] {
			continue
		}
		writeField(f)
		emittedField[f.Tag] = true
	}

	for _, tag := range m.groupTags {
		if emittedGroup[tag] {
			continue
		}
		if f, ok := m.fields[tag]; ok && !emittedField[tag] {
			writeField(f)
			emittedField[tag] = true
		}
		writeGroupOccurrences(tag)
	}

	return b.String()
}

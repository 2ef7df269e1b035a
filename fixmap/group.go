package fixmap

// Group is one occurrence's FieldMap plus the counter/delimiter tags that
// identify the repeating-group it belongs to (§3).
type Group struct {
	CounterTag   Tag
	DelimiterTag Tag
	Map          *FieldMap
}

// NewGroup constructs an empty group occurrence.
func NewGroup(counterTag, delimiterTag Tag) *Group {
	return &Group{
		CounterTag:   counterTag,
		DelimiterTag: delimiterTag,
		Map:          NewFieldMap(),
	}
}

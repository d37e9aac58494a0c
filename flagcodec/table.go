// Package flagcodec translates between human typed alias strings and
// enumerated or bit flag values.
package flagcodec

import "strings"

// Kind selects how entry values are combined.
type Kind int

const (
	// Flags tables hold single bits combined with bitwise or.
	Flags Kind = iota
	// Number tables hold plain integers added together and decomposed greedily.
	Number
)

func (k Kind) String() string {
	switch k {
	case Flags:
		return "flags"
	case Number:
		return "number"
	default:
		return "unknown"
	}
}

// Integer is the set of value types a table can carry.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Entry is one recognized value with its accepted spellings.
// Aliases[0] is the canonical display form.
type Entry[T Integer] struct {
	Value   T
	Aliases []string
}

// Canonical returns the preferred spelling of the entry.
func (e Entry[T]) Canonical() string {
	if len(e.Aliases) == 0 {
		return ""
	}
	return e.Aliases[0]
}

// Matches reports whether token is one of the entry aliases, ignoring case.
func (e Entry[T]) Matches(token string) bool {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, token) {
			return true
		}
	}
	return false
}

// Table is an ordered, immutable collection of entries.
type Table[T Integer] struct {
	name    string
	kind    Kind
	entries []Entry[T]
}

// NewTable builds a table. Entries are copied so later changes to the
// arguments do not leak into the table.
func NewTable[T Integer](name string, kind Kind, entries ...Entry[T]) *Table[T] {
	t := &Table[T]{
		name:    name,
		kind:    kind,
		entries: make([]Entry[T], len(entries)),
	}
	for i, e := range entries {
		aliases := make([]string, len(e.Aliases))
		copy(aliases, e.Aliases)
		t.entries[i] = Entry[T]{Value: e.Value, Aliases: aliases}
	}

	if debugChecks {
		if err := t.Validate(); err != nil {
			panic(err)
		}
	}
	return t
}

// Name returns the table name used in error messages.
func (t *Table[T]) Name() string {
	return t.name
}

// Kind returns how the table combines values.
func (t *Table[T]) Kind() Kind {
	return t.kind
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries in table order.
func (t *Table[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(t.entries))
	for i, e := range t.entries {
		aliases := make([]string, len(e.Aliases))
		copy(aliases, e.Aliases)
		out[i] = Entry[T]{Value: e.Value, Aliases: aliases}
	}
	return out
}

// Lookup resolves a single token. The first entry in table order whose
// aliases contain token (case-insensitive) wins.
func (t *Table[T]) Lookup(token string) (Entry[T], bool) {
	for _, e := range t.entries {
		if e.Matches(token) {
			return e, true
		}
	}
	return Entry[T]{}, false
}

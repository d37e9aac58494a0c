package flagcodec

import "strings"

// Unknown is rendered when no entry covers a value.
const Unknown = "Unknown"

const separator = ", "

// tokens splits text on commas and trims each part. Blank input has no tokens.
func tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// IsEdit reports whether text uses the edit grammar, i.e. at least one
// token carries a leading '+' or '-'.
func IsEdit(text string) bool {
	for _, tok := range tokens(text) {
		if strings.HasPrefix(tok, "+") || strings.HasPrefix(tok, "-") {
			return true
		}
	}
	return false
}

func (t *Table[T]) unrecognized(token, input string) error {
	return &UnrecognizedTokenError{Token: token, Input: input, Table: t.name}
}

func (t *Table[T]) add(acc, v T) T {
	if t.kind == Number {
		return acc + v
	}
	return acc | v
}

func (t *Table[T]) remove(acc, v T) T {
	if t.kind == Number {
		return acc - v
	}
	return acc &^ v
}

// Parse converts comma separated aliases into a value. Flag tables combine
// entries with bitwise or, number tables add them. Any unknown token fails
// the whole call.
func (t *Table[T]) Parse(text string) (T, error) {
	var acc T
	for _, tok := range tokens(text) {
		e, ok := t.Lookup(tok)
		if !ok {
			var zero T
			return zero, t.unrecognized(tok, text)
		}
		acc = t.add(acc, e.Value)
	}
	return acc, nil
}

// Members returns the entries whose bits are all present in v, in table order.
func (t *Table[T]) Members(v T) []Entry[T] {
	var out []Entry[T]
	for _, e := range t.entries {
		if v&e.Value == e.Value {
			out = append(out, e)
		}
	}
	return out
}

// Decompose walks the table once, taking every entry that still fits into
// the remaining value. Entries are expected in descending order. Whatever
// is left after the pass is dropped.
func (t *Table[T]) Decompose(v T) []Entry[T] {
	var out []Entry[T]
	rem := v
	for _, e := range t.entries {
		if rem >= e.Value {
			out = append(out, e)
			rem -= e.Value
		}
	}
	return out
}

// Sum adds up the values of every entry covered by v.
func (t *Table[T]) Sum(v T) T {
	var n T
	for _, e := range t.Members(v) {
		n += e.Value
	}
	return n
}

// RenderFlags lists the canonical alias of every entry covered by v.
func (t *Table[T]) RenderFlags(v T) string {
	return join(t.Members(v))
}

// RenderNumber lists the canonical aliases produced by Decompose.
func (t *Table[T]) RenderNumber(v T) string {
	return join(t.Decompose(v))
}

// Render formats v according to the table kind.
func (t *Table[T]) Render(v T) string {
	if t.kind == Number {
		return t.RenderNumber(v)
	}
	return t.RenderFlags(v)
}

func join[T Integer](entries []Entry[T]) string {
	if len(entries) == 0 {
		return Unknown
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Canonical()
	}
	return strings.Join(names, separator)
}

// Canonicalize rewrites every token to its canonical alias without
// touching the value space.
func (t *Table[T]) Canonicalize(text string) (string, error) {
	toks := tokens(text)
	names := make([]string, 0, len(toks))
	for _, tok := range toks {
		e, ok := t.Lookup(tok)
		if !ok {
			return "", t.unrecognized(tok, text)
		}
		names = append(names, e.Canonical())
	}
	return strings.Join(names, separator), nil
}

// Merge applies an edit expression to existing. "-name" removes the entry,
// "+name" or a bare name adds it. Tokens are applied left to right.
func (t *Table[T]) Merge(text string, existing T) (T, error) {
	acc := existing
	for _, tok := range tokens(text) {
		name, remove := tok, false
		switch {
		case strings.HasPrefix(tok, "-"):
			name, remove = strings.TrimSpace(strings.TrimLeft(tok, "-")), true
		case strings.HasPrefix(tok, "+"):
			name = strings.TrimSpace(strings.TrimLeft(tok, "+"))
		}

		e, ok := t.Lookup(name)
		if !ok {
			return existing, t.unrecognized(tok, text)
		}
		if remove {
			acc = t.remove(acc, e.Value)
		} else {
			acc = t.add(acc, e.Value)
		}
	}
	return acc, nil
}

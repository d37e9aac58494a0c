package flagcodec

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Validate checks the authoring contract of the table and returns every
// problem found:
//   - each entry has at least one non-blank alias
//   - no alias appears twice across the table (case-insensitive)
//   - flag entries are a single bit and do not overlap
//   - number entries are positive and strictly descending
func (t *Table[T]) Validate() error {
	var errs []error

	seen := make(map[string]int)
	var union uint64
	for i, e := range t.entries {
		if len(e.Aliases) == 0 {
			errs = append(errs, fmt.Errorf("%s: entry %d has no aliases", t.name, i))
		}
		for _, a := range e.Aliases {
			if strings.TrimSpace(a) == "" {
				errs = append(errs, fmt.Errorf("%s: entry %d has a blank alias", t.name, i))
				continue
			}
			key := strings.ToLower(a)
			if j, dup := seen[key]; dup {
				errs = append(errs, fmt.Errorf("%s: alias %q used by entries %d and %d", t.name, a, j, i))
				continue
			}
			seen[key] = i
		}

		switch t.kind {
		case Flags:
			u := uint64(e.Value)
			if e.Value < 0 || bits.OnesCount64(u) != 1 {
				errs = append(errs, fmt.Errorf("%s: flag entry %q is not a single bit", t.name, e.Canonical()))
				continue
			}
			if union&u != 0 {
				errs = append(errs, fmt.Errorf("%s: flag entry %q overlaps an earlier entry", t.name, e.Canonical()))
			}
			union |= u
		case Number:
			if e.Value <= 0 {
				errs = append(errs, fmt.Errorf("%s: number entry %q is not positive", t.name, e.Canonical()))
			}
			if i > 0 && e.Value >= t.entries[i-1].Value {
				errs = append(errs, fmt.Errorf("%s: number entry %q breaks descending order", t.name, e.Canonical()))
			}
		}
	}

	return errors.Join(errs...)
}

package protocol

import (
	"fmt"
	"sort"
	"strconv"
)

// ParseBounded parses a decimal integer and checks it lies within [min, max].
// An optional leading sign is accepted; surrounding whitespace is not.
func ParseBounded(text string, min, max int64) (int64, error) {
	if text == "" {
		return 0, NewMalformedError("", text, "empty number")
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, NewRangeError("", text, min, max)
		}
		return 0, &ProtocolError{
			Type:    ErrTypeMalformedLine,
			Value:   text,
			Message: "not a decimal integer",
			Err:     err,
		}
	}

	if v < min || v > max {
		return 0, NewRangeError("", text, min, max)
	}
	return v, nil
}

// parseField is ParseBounded with the field name attached to the error
func parseField(field, text string, min, max int64) (int, error) {
	v, err := ParseBounded(text, min, max)
	if err != nil {
		if pe, ok := err.(*ProtocolError); ok {
			pe.Field = field
		}
		return 0, err
	}
	return int(v), nil
}

// TableEntry maps a wire token to a symbolic tag
type TableEntry[T any] struct {
	Key   string
	Value T
}

// Table is an immutable lookup table sorted by key.
// Keys are compared byte-wise, so embedded padding must match exactly.
type Table[T any] struct {
	entries []TableEntry[T]
}

// NewTable builds a table from entries that must already be in strictly
// ascending key order. Unsorted or duplicate keys are rejected.
func NewTable[T any](entries ...TableEntry[T]) (*Table[T], error) {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			return nil, fmt.Errorf("table not sorted: %q must sort before %q", entries[i-1].Key, entries[i].Key)
		}
	}
	cp := make([]TableEntry[T], len(entries))
	copy(cp, entries)
	return &Table[T]{entries: cp}, nil
}

// MustTable is NewTable for package-level tables known to be sorted
func MustTable[T any](entries ...TableEntry[T]) *Table[T] {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup performs a binary search for key
func (t *Table[T]) Lookup(key string) (T, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Key >= key
	})
	if i < len(t.entries) && t.entries[i].Key == key {
		return t.entries[i].Value, true
	}
	var zero T
	return zero, false
}

// Len returns the number of entries
func (t *Table[T]) Len() int {
	return len(t.entries)
}

// Keys returns the table keys in sorted order
func (t *Table[T]) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in key order
func (t *Table[T]) Entries() []TableEntry[T] {
	out := make([]TableEntry[T], len(t.entries))
	copy(out, t.entries)
	return out
}

// Months maps the meter's month tokens to 0-based month numbers.
// The meter spells June and July out in full; the short forms are kept too.
var Months = MustTable(
	TableEntry[int]{"Apr", 3},
	TableEntry[int]{"Aug", 7},
	TableEntry[int]{"Dec", 11},
	TableEntry[int]{"Feb", 1},
	TableEntry[int]{"Jan", 0},
	TableEntry[int]{"Jul", 6},
	TableEntry[int]{"July", 6},
	TableEntry[int]{"Jun", 5},
	TableEntry[int]{"June", 5},
	TableEntry[int]{"Mar", 2},
	TableEntry[int]{"May", 4},
	TableEntry[int]{"Nov", 10},
	TableEntry[int]{"Oct", 9},
	TableEntry[int]{"Sep", 8},
)

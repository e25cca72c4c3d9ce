package types

import (
	"fmt"

	"cminor/internal/layout"
)

// Snapshot returns the interned descriptors and records in table order.
// Index 0 of the record slice is the invalid sentinel.
func (t *Table) Snapshot() ([]Type, []Record) {
	tt := make([]Type, len(t.types))
	copy(tt, t.types)
	recs := make([]Record, len(t.records))
	copy(recs, t.records)
	return tt, recs
}

// FromSnapshot rebuilds a table for target from a snapshot, preserving
// every TypeID. The snapshot must come from a table seeded by NewTable,
// so the builtin primitives are present.
func FromSnapshot(target layout.Target, snapTypes []Type, snapRecords []Record) (*Table, error) {
	t := &Table{
		target: target,
		index:  make(map[typeKey]TypeID, len(snapTypes)),
	}
	if len(snapRecords) == 0 {
		t.records = append(t.records, Record{})
	} else {
		t.records = append(t.records, snapRecords...)
	}
	for i, tt := range snapTypes {
		if int(tt.Payload) >= len(t.records) {
			return nil, fmt.Errorf("types: snapshot type %d references record %d of %d", i, tt.Payload, len(t.records))
		}
		t.types = append(t.types, tt)
		t.index[keyOf(tt)] = TypeID(i)
	}
	seed := NewTable(target)
	for i, tt := range seed.types {
		if id, ok := t.index[keyOf(tt)]; !ok || id != TypeID(i) {
			return nil, fmt.Errorf("types: snapshot is missing builtin %s", seed.String(TypeID(i)))
		}
	}
	t.builtins = seed.builtins
	return t, nil
}

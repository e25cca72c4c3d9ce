package entity

import (
	"fmt"

	"fortio.org/safecast"
)

// StringEntry is one interned string literal. The code generator emits it
// into read-only data; IR string expressions point at it by entry.
type StringEntry struct {
	ID    uint32
	Value string
}

// Symbol returns the assembly-level name of the entry.
func (e *StringEntry) Symbol() string {
	return fmt.Sprintf(".LC%d", e.ID)
}

// ConstantPool deduplicates string literals across a whole program.
type ConstantPool struct {
	entries []*StringEntry
	index   map[string]*StringEntry
}

// NewConstantPool creates an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: make(map[string]*StringEntry, 16)}
}

// Intern returns the entry for value, creating it on first use.
func (p *ConstantPool) Intern(value string) *StringEntry {
	if e, ok := p.index[value]; ok {
		return e
	}
	id, err := safecast.Conv[uint32](len(p.entries))
	if err != nil {
		panic(fmt.Errorf("entity: constant pool overflow: %w", err))
	}
	e := &StringEntry{ID: id, Value: value}
	p.entries = append(p.entries, e)
	p.index[value] = e
	return e
}

// Entries returns every entry in insertion order.
func (p *ConstantPool) Entries() []*StringEntry {
	return p.entries
}

// Len reports how many distinct strings the pool holds.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

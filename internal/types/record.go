package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Member is one named slot of a struct or union with its resolved offset.
type Member struct {
	Name   string
	Type   TypeID
	Offset int64
}

// Record stores the resolved shape of a struct or union type.
type Record struct {
	Name    string
	Members []Member
	Size    int64
	Align   int64
}

func (t *Table) record(payload uint32) *Record {
	if payload == 0 || int(payload) >= len(t.records) {
		return nil
	}
	return &t.records[payload]
}

// RecordOf returns the record behind a struct or union type.
func (t *Table) RecordOf(id TypeID) (*Record, bool) {
	tt, ok := t.Lookup(id)
	if !ok || (tt.Kind != KindStruct && tt.Kind != KindUnion) {
		return nil, false
	}
	rec := t.record(tt.Payload)
	return rec, rec != nil
}

// MemberOf resolves a member by name on a struct or union type.
func (t *Table) MemberOf(id TypeID, name string) (Member, bool) {
	rec, ok := t.RecordOf(id)
	if !ok {
		return Member{}, false
	}
	for _, m := range rec.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// AddStruct interns a struct type, laying its members out sequentially with
// natural alignment and trailing padding to the widest member.
func (t *Table) AddStruct(name string, members []Member) TypeID {
	var offset, align int64 = 0, 1
	laid := make([]Member, len(members))
	for i, m := range members {
		ma := t.Alignment(m.Type)
		offset = roundUp(offset, ma)
		laid[i] = Member{Name: m.Name, Type: m.Type, Offset: offset}
		offset += t.Size(m.Type)
		if ma > align {
			align = ma
		}
	}
	return t.addRecord(KindStruct, name, laid, roundUp(offset, align), align)
}

// AddUnion interns a union type: every member at offset zero, size of the
// widest member padded to the strictest alignment.
func (t *Table) AddUnion(name string, members []Member) TypeID {
	var size, align int64 = 0, 1
	laid := make([]Member, len(members))
	for i, m := range members {
		laid[i] = Member{Name: m.Name, Type: m.Type, Offset: 0}
		if s := t.Size(m.Type); s > size {
			size = s
		}
		if a := t.Alignment(m.Type); a > align {
			align = a
		}
	}
	return t.addRecord(KindUnion, name, laid, roundUp(size, align), align)
}

func (t *Table) addRecord(kind Kind, name string, members []Member, size, align int64) TypeID {
	payload, err := safecast.Conv[uint32](len(t.records))
	if err != nil {
		panic(fmt.Errorf("types: record overflow: %w", err))
	}
	t.records = append(t.records, Record{
		Name:    name,
		Members: members,
		Size:    size,
		Align:   align,
	})
	return t.internRaw(Type{Kind: kind, Payload: payload})
}

func roundUp(n, align int64) int64 {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + align - rem
}

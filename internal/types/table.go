package types

import (
	"fmt"

	"fortio.org/safecast"

	"cminor/internal/layout"
)

// Builtins stores TypeIDs for types the lowering pass asks for by name.
type Builtins struct {
	Invalid      TypeID
	Void         TypeID
	SignedChar   TypeID
	SignedShort  TypeID
	SignedInt    TypeID
	SignedLong   TypeID
	UnsignedChar TypeID
	UnsignedInt  TypeID
	UnsignedLong TypeID
}

// Table provides stable TypeIDs by hashing structural descriptors and
// answers size, alignment and shape queries against a layout target.
type Table struct {
	target   layout.Target
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	records  []Record
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   CWidth
	Signed  bool
	Payload uint32
}

// NewTable constructs a table seeded with the builtin primitives for the
// given target.
func NewTable(target layout.Target) *Table {
	t := &Table{
		target: target,
		index:  make(map[typeKey]TypeID, 64),
	}
	t.records = append(t.records, Record{}) // reserve 0 as invalid sentinel
	t.builtins.Invalid = t.internRaw(Type{Kind: KindInvalid})
	t.builtins.Void = t.Intern(Type{Kind: KindVoid})
	t.builtins.SignedChar = t.Intern(MakeInt(WidthChar, true))
	t.builtins.SignedShort = t.Intern(MakeInt(WidthShort, true))
	t.builtins.SignedInt = t.Intern(MakeInt(WidthInt, true))
	t.builtins.SignedLong = t.Intern(MakeInt(WidthLong, true))
	t.builtins.UnsignedChar = t.Intern(MakeInt(WidthChar, false))
	t.builtins.UnsignedInt = t.Intern(MakeInt(WidthInt, false))
	t.builtins.UnsignedLong = t.Intern(MakeInt(WidthLong, false))
	return t
}

// Target returns the layout target the table was built for.
func (t *Table) Target() layout.Target {
	return t.target
}

// Builtins returns TypeIDs for the primitive types.
func (t *Table) Builtins() Builtins {
	return t.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (t *Table) Intern(tt Type) TypeID {
	if tt.Kind == KindInvalid {
		return NoTypeID
	}
	key := keyOf(tt)
	if id, ok := t.index[key]; ok {
		return id
	}
	return t.internRaw(tt)
}

func (t *Table) internRaw(tt Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(t.types))
	if err != nil {
		panic(fmt.Errorf("types: table overflow: %w", err))
	}
	id := TypeID(lenTypes)
	t.types = append(t.types, tt)
	t.index[keyOf(tt)] = id
	return id
}

func keyOf(tt Type) typeKey {
	return typeKey{
		Kind:    tt.Kind,
		Elem:    tt.Elem,
		Count:   tt.Count,
		Width:   tt.Width,
		Signed:  tt.Signed,
		Payload: tt.Payload,
	}
}

// Lookup returns the descriptor for a TypeID.
func (t *Table) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(t.types) {
		return Type{}, false
	}
	return t.types[id], true
}

// MustLookup panics when id is invalid.
func (t *Table) MustLookup(id TypeID) Type {
	tt, ok := t.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("types: invalid TypeID %d", id))
	}
	return tt
}

// SignedInt returns the native signed integer type.
func (t *Table) SignedInt() TypeID {
	return t.builtins.SignedInt
}

// PtrDiff returns the signed integer type whose size matches the pointer
// width of the target.
func (t *Table) PtrDiff() TypeID {
	if t.target.LongSize == t.target.PtrSize {
		return t.builtins.SignedLong
	}
	return t.builtins.SignedInt
}

// PointerTo returns the pointer type to elem.
func (t *Table) PointerTo(elem TypeID) TypeID {
	return t.Intern(MakePointer(elem))
}

// ArrayOf returns the array type of count elements.
func (t *Table) ArrayOf(elem TypeID, count uint32) TypeID {
	return t.Intern(MakeArray(elem, count))
}

// FuncOf returns the function type returning ret.
func (t *Table) FuncOf(ret TypeID) TypeID {
	return t.Intern(MakeFunc(ret))
}

// BaseType returns the pointee of a pointer or the element of an array.
func (t *Table) BaseType(id TypeID) TypeID {
	tt, ok := t.Lookup(id)
	if !ok {
		return NoTypeID
	}
	switch tt.Kind {
	case KindPointer, KindArray:
		return tt.Elem
	}
	return NoTypeID
}

// IsDereferable reports whether the type can appear under a dereference:
// pointers and arrays.
func (t *Table) IsDereferable(id TypeID) bool {
	tt, ok := t.Lookup(id)
	return ok && (tt.Kind == KindPointer || tt.Kind == KindArray)
}

// IsArray reports whether the type is an array.
func (t *Table) IsArray(id TypeID) bool {
	tt, ok := t.Lookup(id)
	return ok && tt.Kind == KindArray
}

// IsScalar reports whether a value of the type fits a machine register and
// can be read by a single load. Arrays, structs and unions are referenced
// only by address.
func (t *Table) IsScalar(id TypeID) bool {
	tt, ok := t.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindInteger, KindPointer, KindFunc:
		return true
	}
	return false
}

// IsSigned reports whether the type is a signed integer. Pointers and
// every non-integer type count as unsigned.
func (t *Table) IsSigned(id TypeID) bool {
	tt, ok := t.Lookup(id)
	return ok && tt.Kind == KindInteger && tt.Signed
}

// Size returns the byte size of the type on the table's target. Incomplete
// arrays and void have size 0.
func (t *Table) Size(id TypeID) int64 {
	tt, ok := t.Lookup(id)
	if !ok {
		return 0
	}
	switch tt.Kind {
	case KindInteger:
		return int64(t.intSize(tt.Width))
	case KindPointer, KindFunc:
		return int64(t.target.PtrSize)
	case KindArray:
		if tt.Count == ArrayIncomplete {
			return 0
		}
		return t.Size(tt.Elem) * int64(tt.Count)
	case KindStruct, KindUnion:
		if rec := t.record(tt.Payload); rec != nil {
			return rec.Size
		}
	}
	return 0
}

// Alignment returns the byte alignment of the type on the table's target.
func (t *Table) Alignment(id TypeID) int64 {
	tt, ok := t.Lookup(id)
	if !ok {
		return 1
	}
	switch tt.Kind {
	case KindInteger:
		return int64(t.intAlign(tt.Width))
	case KindPointer, KindFunc:
		return int64(t.target.PtrAlign)
	case KindArray:
		return t.Alignment(tt.Elem)
	case KindStruct, KindUnion:
		if rec := t.record(tt.Payload); rec != nil {
			return rec.Align
		}
	}
	return 1
}

func (t *Table) intSize(w CWidth) int {
	switch w {
	case WidthChar:
		return t.target.CharSize
	case WidthShort:
		return t.target.ShortSize
	case WidthInt:
		return t.target.IntSize
	case WidthLong:
		return t.target.LongSize
	}
	return t.target.IntSize
}

func (t *Table) intAlign(w CWidth) int {
	switch w {
	case WidthChar:
		return t.target.CharAlign
	case WidthShort:
		return t.target.ShortAlign
	case WidthInt:
		return t.target.IntAlign
	case WidthLong:
		return t.target.LongAlign
	}
	return t.target.IntAlign
}

// String renders a type for dumps and test failures.
func (t *Table) String(id TypeID) string {
	tt, ok := t.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindInteger:
		if tt.Signed {
			return tt.Width.String()
		}
		return "unsigned " + tt.Width.String()
	case KindPointer:
		return t.String(tt.Elem) + "*"
	case KindArray:
		if tt.Count == ArrayIncomplete {
			return t.String(tt.Elem) + "[]"
		}
		return fmt.Sprintf("%s[%d]", t.String(tt.Elem), tt.Count)
	case KindStruct:
		if rec := t.record(tt.Payload); rec != nil {
			return "struct " + rec.Name
		}
		return "struct"
	case KindUnion:
		if rec := t.record(tt.Payload); rec != nil {
			return "union " + rec.Name
		}
		return "union"
	case KindFunc:
		return t.String(tt.Elem) + "()"
	}
	return "<invalid>"
}

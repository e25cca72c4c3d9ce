// Package astio serializes typed syntax trees for transport between the
// front end and the lowering pass. The wire format flattens the pointer
// graph into index-based tables so entities and scopes shared across the
// tree survive a round trip as the same objects.
package astio

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"cminor/internal/ast"
	"cminor/internal/layout"
	"cminor/internal/types"
)

// Current schema version - increment when the payload format changes.
const schemaVersion uint16 = 1

// envelope wraps the marshalled payload with a digest so a truncated or
// bit-flipped astpack fails loudly instead of decoding into garbage.
type envelope struct {
	Sum  []byte
	Body []byte
}

// payload is the root of the wire format. Every slice is an index space;
// cross references use int32 indices with -1 standing for nil.
type payload struct {
	Schema uint16

	Types   []wireType
	Records []wireRecord
	Strings []string

	Entities []wireEntity
	Scopes   []wireScope

	Exprs []wireExpr
	Stmts []wireStmt

	Vars  []wireVar
	Funcs []wireFunc
}

type wireSpan struct {
	File  uint32
	Start uint32
	End   uint32
}

type wireType struct {
	Kind    uint8
	Elem    uint32
	Count   uint32
	Width   uint8
	Signed  bool
	Payload uint32
}

type wireMember struct {
	Name   string
	Type   uint32
	Offset int64
}

type wireRecord struct {
	Name    string
	Members []wireMember
	Size    int64
	Align   int64
}

type wireEntity struct {
	Name    string
	Type    uint32
	Storage uint8
	NoLoad  bool
	Temp    bool
	Span    wireSpan
}

type wireScope struct {
	Parent int32 // always lower than the scope's own index
	Vars   []int32
}

// wireExpr stores every expression kind in one struct. X, Y and Z are
// the child expression slots; which of the remaining fields matter is
// decided by Kind.
type wireExpr struct {
	Kind      uint8
	Type      uint32
	Span      wireSpan
	WantsAddr bool

	Int       int64  // IntLit value
	Str       uint32 // StrLit pool entry
	Ent       int32  // VarRef entity
	Op        uint8  // Bin and OpAssign operator, or Un operator
	X, Y, Z   int32
	Args      []int32 // Call arguments
	Name      string  // member name
	Offset    int64   // member byte offset
	ElemSize  int64
	Length    int64
	MultiDim  bool
	Effective bool
	Decrement bool
	AllocSize int64
}

type wireDecl struct {
	Ent  int32
	Init int32
}

// wireStmt mirrors wireExpr for statements. Expr carries the condition
// of every conditional statement; Then doubles as the loop body and the
// statement attached to a label.
type wireStmt struct {
	Kind uint8
	Span wireSpan

	Scope int32
	Decls []wireDecl
	Stmts []int32
	Expr  int32
	Init  int32
	Incr  int32
	Then  int32
	Else  int32
	Cases []wireCase
	Name  string
}

type wireCase struct {
	Values []int32
	Body   int32
	Span   wireSpan
}

type wireVar struct {
	Ent  int32
	Init int32
}

type wireFunc struct {
	Ent    int32
	Params []int32
	Scope  int32
	Body   int32
}

// Encode serializes a typed program together with the type table it was
// checked against.
func Encode(prog *ast.Program, table *types.Table) ([]byte, error) {
	e := newEncoder(table)
	e.program(prog)
	body, err := msgpack.Marshal(&e.p)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)
	return msgpack.Marshal(&envelope{Sum: sum[:], Body: body})
}

// Decode rebuilds a program and its type table from Encode output. The
// target must match the profile the program was checked for, since type
// sizes are baked into the tree.
func Decode(data []byte, target layout.Target) (*ast.Program, *types.Table, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("astio: %w", err)
	}
	sum := sha256.Sum256(env.Body)
	if !bytes.Equal(env.Sum, sum[:]) {
		return nil, nil, errors.New("astio: payload digest mismatch")
	}
	var p payload
	if err := msgpack.Unmarshal(env.Body, &p); err != nil {
		return nil, nil, fmt.Errorf("astio: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, nil, fmt.Errorf("astio: schema version %d, want %d", p.Schema, schemaVersion)
	}
	d := &decoder{p: &p}
	return d.program(target)
}

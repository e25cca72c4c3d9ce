package source

import (
	"fmt"
	"os"
	"sort"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files and resolves spans to
// human-readable positions.
type FileSet struct {
	files []File
	index map[string]FileID
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		index: make(map[string]FileID),
	}
}

// Add stores a file, computes its line index, and returns a new FileID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("source: file id overflow: %w", err))
	}
	id := FileID(lenFiles)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Flags:   flags,
	})
	fs.index[path] = id
	return id
}

// Load reads a file from disk and calls Add.
func (fs *FileSet) Load(path string) (FileID, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the caller
	if err != nil {
		return NoFileID, err
	}
	return fs.Add(path, content, 0), nil
}

// AddVirtual adds an in-memory file (test, stdin, or generated).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID, or nil when unknown.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// Lookup returns the file ID for a previously added path.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	id, ok := fs.index[path]
	return id, ok
}

// Path returns the path of a file, or "<unknown>" when the ID is invalid.
func (fs *FileSet) Path(id FileID) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	return f.Path
}

// Position resolves a byte offset inside a file to a 1-based line/column.
func (fs *FileSet) Position(id FileID, offset uint32) LineCol {
	f := fs.Get(id)
	if f == nil {
		return LineCol{Line: 1, Col: 1}
	}
	line := sort.Search(len(f.LineIdx), func(i int) bool {
		return f.LineIdx[i] > offset
	})
	lineStart := uint32(0)
	if line > 0 {
		lineStart = f.LineIdx[line-1]
	}
	lineU32, err := safecast.Conv[uint32](line)
	if err != nil {
		panic(fmt.Errorf("source: line overflow: %w", err))
	}
	return LineCol{Line: lineU32 + 1, Col: offset - lineStart + 1}
}

// Line returns the text of the 1-based line containing offset, without the
// trailing newline.
func (fs *FileSet) Line(id FileID, offset uint32) string {
	f := fs.Get(id)
	if f == nil {
		return ""
	}
	pos := fs.Position(id, offset)
	start := uint32(0)
	if pos.Line > 1 {
		start = f.LineIdx[pos.Line-2]
	}
	end := uint32(len(f.Content))
	if int(pos.Line-1) < len(f.LineIdx) {
		end = f.LineIdx[pos.Line-1] - 1
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// buildLineIndex records the byte offset right after each '\n'.
func buildLineIndex(content []byte) []uint32 {
	var idx []uint32
	for i, b := range content {
		if b == '\n' {
			off, err := safecast.Conv[uint32](i + 1)
			if err != nil {
				panic(fmt.Errorf("source: offset overflow: %w", err))
			}
			idx = append(idx, off)
		}
	}
	return idx
}

package library

import (
	"github.com/hengadev/rtti"
)

// TypeIDProjectLibraryEntries identifies Entries on the wire.
const TypeIDProjectLibraryEntries rtti.TypeID = 2001

// Entries is the persisted unit of the project library: it owns the root directory
// and through it the whole tree.
type Entries struct {
	root *DirectoryEntry
}

// NewEntries wraps root. A nil root is replaced by an empty directory.
func NewEntries(root *DirectoryEntry) *Entries {
	e := &Entries{}
	e.setRoot(root)
	return e
}

func (*Entries) TypeID() rtti.TypeID { return TypeIDProjectLibraryEntries }

// Root returns the root directory.
func (e *Entries) Root() *DirectoryEntry { return e.root }

func (e *Entries) setRoot(root *DirectoryEntry) {
	if root == nil {
		root = NewDirectory("", "")
	}
	root.parent = nil
	for _, c := range root.children {
		c.node().parent = root
	}
	e.root = root
}

// EntriesType returns the descriptor of Entries.
func EntriesType() *rtti.TypeDescriptor {
	return rtti.NewTypeDescriptor("ProjectLibraryEntries", TypeIDProjectLibraryEntries,
		func() *Entries { return NewEntries(nil) },
		rtti.PlainField("rootElement", 0, DirectoryCodec,
			func(e *Entries) *DirectoryEntry { return e.root },
			func(e *Entries, v *DirectoryEntry) { e.setRoot(v) }),
	)
}

// RegisterTypes registers the library types with reg.
func RegisterTypes(reg *rtti.Registry) error {
	return reg.Register(EntriesType())
}

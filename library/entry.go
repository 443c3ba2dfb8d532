// Package library holds the project library tree: a hierarchy of file and directory
// entries persisted as one nested record through the plain codecs in this package.
package library

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EntryType is the tag written first in every entry record.
type EntryType uint32

const (
	EntryTypeFile      EntryType = 0
	EntryTypeDirectory EntryType = 1
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeFile:
		return "file"
	case EntryTypeDirectory:
		return "directory"
	default:
		return fmt.Sprintf("entry(%d)", uint32(t))
	}
}

var (
	ErrAttached = errors.New("entry already has a parent")
	ErrCycle    = errors.New("entry would contain itself")
	ErrNilEntry = errors.New("nil entry")
)

// Entry is a node of the project library tree. It is implemented by *FileEntry and
// *DirectoryEntry only.
type Entry interface {
	Type() EntryType
	Path() string
	ElementName() string
	// NameHash is the hash of the lowercased element name.
	NameHash() uint64
	// Parent is the directory currently holding the entry, nil for a root.
	Parent() *DirectoryEntry

	node() *entryBase
}

// NameHash returns the case-insensitive hash used to look entries up by name.
func NameHash(name string) uint64 {
	return xxhash.Sum64String(cases.Lower(language.Und).String(name))
}

// nameCache is derived from the element name and never persisted.
type nameCache struct {
	hash uint64
}

type entryBase struct {
	path string
	name string

	cache  nameCache
	parent *DirectoryEntry
}

func (e *entryBase) Path() string            { return e.path }
func (e *entryBase) ElementName() string     { return e.name }
func (e *entryBase) NameHash() uint64        { return e.cache.hash }
func (e *entryBase) Parent() *DirectoryEntry { return e.parent }
func (e *entryBase) node() *entryBase        { return e }

func (e *entryBase) SetPath(path string) { e.path = path }

// SetElementName renames the entry and recomputes its name hash.
func (e *entryBase) SetElementName(name string) {
	e.name = name
	e.cache.hash = NameHash(name)
}

// FileEntry is a leaf of the tree.
type FileEntry struct {
	entryBase
	LastUpdate time.Time
}

// NewFile creates a detached file entry.
func NewFile(path, name string, lastUpdate time.Time) *FileEntry {
	f := &FileEntry{LastUpdate: lastUpdate}
	f.path = path
	f.SetElementName(name)
	return f
}

func (*FileEntry) Type() EntryType { return EntryTypeFile }

// DirectoryEntry owns an ordered list of child entries.
type DirectoryEntry struct {
	entryBase
	children []Entry
}

// NewDirectory creates a detached, empty directory entry.
func NewDirectory(path, name string) *DirectoryEntry {
	d := &DirectoryEntry{children: []Entry{}}
	d.path = path
	d.SetElementName(name)
	return d
}

func (*DirectoryEntry) Type() EntryType { return EntryTypeDirectory }

// Children returns the child entries in order. The slice is a copy.
func (d *DirectoryEntry) Children() []Entry { return slices.Clone(d.children) }

// Len returns the number of direct children.
func (d *DirectoryEntry) Len() int { return len(d.children) }

// Child returns the i-th child.
func (d *DirectoryEntry) Child(i int) Entry { return d.children[i] }

// AddChild appends child and makes d its parent. A child that is still attached
// elsewhere must be removed from its parent first.
func (d *DirectoryEntry) AddChild(child Entry) error {
	if isNil(child) {
		return ErrNilEntry
	}
	if child.Parent() != nil {
		return fmt.Errorf("%w: %q is held by %q", ErrAttached, child.ElementName(), child.Parent().ElementName())
	}
	if dir, ok := child.(*DirectoryEntry); ok {
		for p := d; p != nil; p = p.parent {
			if p == dir {
				return fmt.Errorf("%w: %q", ErrCycle, dir.ElementName())
			}
		}
	}
	d.attach(child)
	return nil
}

func isNil(e Entry) bool {
	switch v := e.(type) {
	case *FileEntry:
		return v == nil
	case *DirectoryEntry:
		return v == nil
	}
	return e == nil
}

// attach appends child without checks. It is the only place parent links are set.
func (d *DirectoryEntry) attach(child Entry) {
	child.node().parent = d
	d.children = append(d.children, child)
}

// RemoveChild detaches child from d. It reports whether child was found.
func (d *DirectoryEntry) RemoveChild(child Entry) bool {
	i := slices.Index(d.children, child)
	if i < 0 {
		return false
	}
	d.children = slices.Delete(d.children, i, i+1)
	child.node().parent = nil
	return true
}

// Find returns the direct child named name, compared case-insensitively.
func (d *DirectoryEntry) Find(name string) (Entry, bool) {
	h := NameHash(name)
	lower := cases.Lower(language.Und)
	want := lower.String(name)
	for _, c := range d.children {
		if c.NameHash() == h && lower.String(c.ElementName()) == want {
			return c, true
		}
	}
	return nil, false
}

// SkipDir can be returned by a WalkFunc to skip the children of a directory.
var SkipDir = errors.New("skip this directory")

// WalkFunc is called for every entry visited by Walk. depth is 0 for the start entry.
type WalkFunc func(e Entry, depth int) error

// Walk visits e and every entry below it in pre-order, parents before children.
func Walk(e Entry, fn WalkFunc) error {
	err := walk(e, 0, fn)
	if errors.Is(err, SkipDir) {
		return nil
	}
	return err
}

func walk(e Entry, depth int, fn WalkFunc) error {
	if err := fn(e, depth); err != nil {
		return err
	}
	dir, ok := e.(*DirectoryEntry)
	if !ok {
		return nil
	}
	for _, c := range dir.children {
		if err := walk(c, depth+1, fn); err != nil {
			if errors.Is(err, SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

package library

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameHash_CaseInsensitive(t *testing.T) {
	assert.Equal(t, NameHash("readme.md"), NameHash("README.MD"))
	assert.Equal(t, NameHash("ÉTÉ.txt"), NameHash("été.txt"))
	assert.NotEqual(t, NameHash("a.txt"), NameHash("b.txt"))
}

func TestSetElementName_RecomputesHash(t *testing.T) {
	f := NewFile("/x/a.txt", "a.txt", time.Time{})
	assert.Equal(t, NameHash("a.txt"), f.NameHash())

	f.SetElementName("B.TXT")
	assert.Equal(t, "B.TXT", f.ElementName())
	assert.Equal(t, NameHash("b.txt"), f.NameHash())
}

func TestDirectory_AddAndRemoveChild(t *testing.T) {
	root := NewDirectory("/root", "root")
	sub := NewDirectory("/root/sub", "sub")
	file := NewFile("/root/sub/b.txt", "b.txt", time.Unix(2000, 0))

	require.NoError(t, root.AddChild(sub))
	require.NoError(t, sub.AddChild(file))
	assert.Same(t, root, sub.Parent())
	assert.Same(t, sub, file.Parent())
	assert.Nil(t, root.Parent())

	err := root.AddChild(file)
	assert.ErrorIs(t, err, ErrAttached)

	assert.True(t, sub.RemoveChild(file))
	assert.Nil(t, file.Parent())
	assert.Zero(t, sub.Len())
	assert.False(t, sub.RemoveChild(file))

	require.NoError(t, root.AddChild(file))
	assert.Same(t, root, file.Parent())
	assert.Equal(t, []Entry{sub, file}, root.Children())
}

func TestDirectory_AddChildRejectsCycles(t *testing.T) {
	root := NewDirectory("/r", "r")
	sub := NewDirectory("/r/s", "s")
	require.NoError(t, root.AddChild(sub))

	assert.ErrorIs(t, root.AddChild(root), ErrCycle)

	root.RemoveChild(sub)
	require.NoError(t, sub.AddChild(root))
	assert.ErrorIs(t, root.AddChild(sub), ErrCycle)

	var nilFile *FileEntry
	assert.ErrorIs(t, root.AddChild(nilFile), ErrNilEntry)
	assert.ErrorIs(t, root.AddChild(nil), ErrNilEntry)
}

func TestDirectory_Find(t *testing.T) {
	root := NewDirectory("/root", "root")
	readme := NewFile("/root/README.md", "README.md", time.Time{})
	require.NoError(t, root.AddChild(readme))
	require.NoError(t, root.AddChild(NewDirectory("/root/src", "src")))

	got, ok := root.Find("readme.MD")
	require.True(t, ok)
	assert.Same(t, readme, got)

	_, ok = root.Find("missing")
	assert.False(t, ok)
}

func TestWalk(t *testing.T) {
	root := sampleTree(t)

	var visited []string
	require.NoError(t, Walk(root, func(e Entry, depth int) error {
		visited = append(visited, e.ElementName())
		return nil
	}))
	assert.Equal(t, []string{"root", "a.txt", "sub", "b.txt"}, visited)

	visited = nil
	require.NoError(t, Walk(root, func(e Entry, depth int) error {
		visited = append(visited, e.ElementName())
		if e.ElementName() == "sub" {
			return SkipDir
		}
		return nil
	}))
	assert.Equal(t, []string{"root", "a.txt", "sub"}, visited)

	stop := errors.New("stop")
	err := Walk(root, func(e Entry, depth int) error {
		if depth == 1 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}

func TestFprint(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Fprint(&out, sampleTree(t)))
	assert.Equal(t,
		"root/ (/root, 2 entries)\n"+
			"  a.txt (/root/a.txt, updated 1970-01-01T00:16:40Z)\n"+
			"  sub/ (/root/sub, 1 entries)\n"+
			"    b.txt (/root/sub/b.txt, updated 1970-01-01T00:33:20Z)\n",
		out.String())
}

func TestEntryType_String(t *testing.T) {
	assert.Equal(t, "file", EntryTypeFile.String())
	assert.Equal(t, "directory", EntryTypeDirectory.String())
	assert.Equal(t, "entry(9)", EntryType(9).String())
}

// sampleTree builds root{a.txt, sub{b.txt}}.
func sampleTree(t *testing.T) *DirectoryEntry {
	t.Helper()
	root := NewDirectory("/root", "root")
	sub := NewDirectory("/root/sub", "sub")
	require.NoError(t, root.AddChild(NewFile("/root/a.txt", "a.txt", time.Unix(1000, 0).UTC())))
	require.NoError(t, root.AddChild(sub))
	require.NoError(t, sub.AddChild(NewFile("/root/sub/b.txt", "b.txt", time.Unix(2000, 0).UTC())))
	return root
}

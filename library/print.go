package library

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Fprint writes the tree below e, one entry per line, indented by depth.
func Fprint(w io.Writer, e Entry) error {
	return Walk(e, func(e Entry, depth int) error {
		indent := strings.Repeat("  ", depth)
		var err error
		switch v := e.(type) {
		case *DirectoryEntry:
			_, err = fmt.Fprintf(w, "%s%s/ (%s, %d entries)\n", indent, v.ElementName(), v.Path(), v.Len())
		case *FileEntry:
			_, err = fmt.Fprintf(w, "%s%s (%s, updated %s)\n", indent, v.ElementName(), v.Path(),
				v.LastUpdate.UTC().Format(time.RFC3339))
		}
		return err
	})
}

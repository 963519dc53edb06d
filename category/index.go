package category

import (
	"fmt"

	"github.com/lexandro/fileorganizer-mcp/extension"
)

// Index maps normalized extensions to category names. It is built from a
// registry snapshot and never modified afterwards, so it can be shared
// between goroutines without locking.
type Index struct {
	version uint64
	owners  map[string]string
}

// BuildIndex binds every extension of the snapshot to its category, walking
// categories in registry order. An extension bound twice means the snapshot
// broke the registry's exclusivity rule; the build fails with ErrIndexInconsistent.
func BuildIndex(snap Snapshot) (*Index, error) {
	owners := make(map[string]string)
	for _, cat := range snap.Categories {
		for _, raw := range cat.Extensions {
			ext := extension.Normalize(raw)
			if owner, ok := owners[ext]; ok {
				if owner == cat.Name {
					continue
				}
				return nil, fmt.Errorf("%w: extension %s bound to %q and %q at version %d",
					ErrIndexInconsistent, extension.Display(ext), owner, cat.Name, snap.Version)
			}
			owners[ext] = cat.Name
		}
	}
	return &Index{version: snap.Version, owners: owners}, nil
}

// EmptyIndex resolves every extension to Uncategorized.
func EmptyIndex() *Index {
	return &Index{owners: map[string]string{}}
}

// Resolve returns the category owning ext, or Uncategorized.
func (idx *Index) Resolve(ext string) string {
	if name, ok := idx.owners[extension.Normalize(ext)]; ok {
		return name
	}
	return Uncategorized
}

// Version returns the registry version the index was built from.
func (idx *Index) Version() uint64 {
	return idx.version
}

// Len returns the number of indexed extensions.
func (idx *Index) Len() int {
	return len(idx.owners)
}

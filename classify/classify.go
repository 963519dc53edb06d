// Package classify pairs scanned files with categories. Everything here is a
// pure function of its inputs: no disk access, no shared state.
package classify

import (
	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/scanner"
)

// Record is a scanned file together with its resolved category.
// Category is category.Uncategorized when no category claims the extension.
type Record struct {
	scanner.Descriptor
	Category string `json:"category"`
}

// IsCategorized reports whether a category claimed the file.
func (r Record) IsCategorized() bool {
	return r.Category != category.Uncategorized
}

// Classify resolves one descriptor against an index.
func Classify(d scanner.Descriptor, idx *category.Index) Record {
	return Record{Descriptor: d, Category: idx.Resolve(d.Extension)}
}

// ClassifyAll classifies descriptors in input order.
func ClassifyAll(descriptors []scanner.Descriptor, idx *category.Index) []Record {
	records := make([]Record, len(descriptors))
	for i, d := range descriptors {
		records[i] = Classify(d, idx)
	}
	return records
}

// Reclassify re-derives the category of existing records against a new index.
// The result is a new slice in the same order with the same descriptors.
func Reclassify(records []Record, idx *category.Index) []Record {
	result := make([]Record, len(records))
	for i, record := range records {
		result[i] = Classify(record.Descriptor, idx)
	}
	return result
}

// Changed returns the records of after whose category differs from the
// record at the same position in before.
func Changed(before, after []Record) []Record {
	var changed []Record
	for i := range after {
		if i < len(before) && before[i].Category != after[i].Category {
			changed = append(changed, after[i])
		}
	}
	return changed
}

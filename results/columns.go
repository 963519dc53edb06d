package results

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/extension"
)

// DefaultColumns is used when the configuration lists no columns.
var DefaultColumns = []string{"name", "category", "extension", "size", "modified", "path"}

// KnownColumn reports whether Value renders column.
func KnownColumn(column string) bool {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case "name", "category", "extension", "ext", "type", "size", "bytes",
		"modified", "date", "age", "path", "location", "absolute":
		return true
	}
	return false
}

// Header returns the display label of a column ("size" -> "Size").
func Header(column string) string {
	column = strings.TrimSpace(column)
	if column == "" {
		return ""
	}
	return strings.ToUpper(column[:1]) + strings.ToLower(column[1:])
}

// Headers maps columns to labels, dropping blank entries.
func Headers(columns []string) []string {
	headers := make([]string, 0, len(columns))
	for _, column := range columns {
		if h := Header(column); h != "" {
			headers = append(headers, h)
		}
	}
	return headers
}

// Value renders one cell. Unknown columns render empty.
func Value(record classify.Record, column string) string {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case "name":
		return record.Name()
	case "category":
		return record.Category
	case "extension", "ext", "type":
		return extension.Display(record.Extension)
	case "size":
		return humanize.IBytes(uint64(record.SizeBytes))
	case "bytes":
		return humanize.Comma(record.SizeBytes)
	case "modified", "date":
		return record.ModTime.Format(time.DateTime)
	case "age":
		return humanize.Time(record.ModTime)
	case "path":
		return record.RelativePath
	case "location", "absolute":
		return record.Path
	default:
		return ""
	}
}

// Row renders a record for the given columns, keyed by header label.
func Row(record classify.Record, columns []string) map[string]string {
	row := make(map[string]string, len(columns))
	for _, column := range columns {
		if h := Header(column); h != "" {
			row[h] = Value(record, column)
		}
	}
	return row
}

// Cells renders a record as an ordered slice matching Headers(columns).
func Cells(record classify.Record, columns []string) []string {
	cells := make([]string, 0, len(columns))
	for _, column := range columns {
		if Header(column) != "" {
			cells = append(cells, Value(record, column))
		}
	}
	return cells
}

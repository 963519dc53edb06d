package results

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/lexandro/fileorganizer-mcp/classify"
)

// csvRow is the fixed CSV layout of an export.
type csvRow struct {
	Path      string `csv:"path"`
	Name      string `csv:"name"`
	Category  string `csv:"category"`
	Extension string `csv:"extension"`
	SizeBytes int64  `csv:"size_bytes"`
	Modified  string `csv:"modified"`
}

// WriteCSV writes records as CSV with a header line.
func WriteCSV(w io.Writer, records []classify.Record) error {
	rows := make([]*csvRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, &csvRow{
			Path:      record.RelativePath,
			Name:      record.Name(),
			Category:  record.Category,
			Extension: record.Extension,
			SizeBytes: record.SizeBytes,
			Modified:  record.ModTime.UTC().Format(time.RFC3339),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

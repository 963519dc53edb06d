package tools

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/extension"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// FormatRecords renders records as an aligned table with the given columns.
// total is the number of matches before paging.
func FormatRecords(records []classify.Record, columns []string, total int) string {
	if len(records) == 0 {
		return "No files matched."
	}
	if len(columns) == 0 {
		columns = results.DefaultColumns
	}

	var builder strings.Builder
	if total > len(records) {
		builder.WriteString(fmt.Sprintf("Showing %d of %d files:\n\n", len(records), total))
	} else {
		builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(records)))
	}

	tw := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(results.Headers(columns), "\t"))
	for _, record := range records {
		fmt.Fprintln(tw, strings.Join(results.Cells(record, columns), "\t"))
	}
	tw.Flush()

	return builder.String()
}

// FormatCategories lists categories with their extensions.
func FormatCategories(cats []category.Category) string {
	if len(cats) == 0 {
		return "No categories defined. Every file is " + category.Uncategorized + "."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%d categories:\n\n", len(cats)))
	for _, cat := range cats {
		exts := make([]string, len(cat.Extensions))
		for i, ext := range cat.Extensions {
			exts[i] = extension.Display(ext)
		}
		builder.WriteString(fmt.Sprintf("  %-16s %s\n", cat.Name, strings.Join(exts, " ")))
	}
	return builder.String()
}

// FormatCategoryCounts lists per-category counts, largest first.
func FormatCategoryCounts(counts map[string]int) string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	var builder strings.Builder
	for _, e := range entries {
		builder.WriteString(fmt.Sprintf("  %-20s %s files\n", e.name, humanize.Comma(int64(e.count))))
	}
	return builder.String()
}

// FormatLogRecords renders log records one per line.
func FormatLogRecords(records []logging.Record) string {
	if len(records) == 0 {
		return "No log records."
	}

	var builder strings.Builder
	for _, record := range records {
		builder.WriteString(fmt.Sprintf("%s %-7s %s", record.Time.Format(time.TimeOnly), strings.ToUpper(record.Level), record.Message))
		if len(record.Fields) > 0 {
			keys := make([]string, 0, len(record.Fields))
			for key := range record.Fields {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				builder.WriteString(fmt.Sprintf(" %s=%v", key, record.Fields[key]))
			}
		}
		if record.Source != "" {
			builder.WriteString(" (" + record.Source + ")")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}

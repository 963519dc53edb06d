package tools

import (
	"context"
	"errors"
	"time"

	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const defaultQueryLimit = 100

// QueryArgs defines the input parameters for the organizer_query tool.
type QueryArgs struct {
	Category  string `json:"category,omitempty" jsonschema:"Only files in this category (case-insensitive; 'Uncategorized' for unmatched files)"`
	Extension string `json:"extension,omitempty" jsonschema:"Only files with this extension (e.g. 'pdf'; '(none)' for files without one)"`
	Glob      string `json:"glob,omitempty" jsonschema:"Only files whose relative path matches this glob (e.g. 'photos/**/*.jpg')"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Number of matches to skip"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of files to return (default 100)"`
}

// QueryHandler holds the dependencies for the query tool.
type QueryHandler struct {
	Organizer *organizer.Organizer
	Columns   []string
	Logger    *logrus.Entry
}

// Handle processes an organizer_query request.
func (h *QueryHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	limit := args.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	filter := results.Filter{
		Category:  args.Category,
		Extension: args.Extension,
		Glob:      args.Glob,
	}

	matched, err := h.Organizer.Query(filter)
	if err != nil {
		var globErr *results.InvalidGlobError
		if errors.As(err, &globErr) {
			return errorResult("Invalid glob: %v", err), nil, nil
		}
		return errorResult("Query error: %v", err), nil, nil
	}

	total := len(matched)
	page := pageOf(matched, args.Offset, limit)

	h.Logger.WithFields(logrus.Fields{
		"category":  args.Category,
		"extension": args.Extension,
		"glob":      args.Glob,
		"matches":   total,
		"elapsed":   time.Since(start),
	}).Info("organizer_query")

	return textResult(FormatRecords(page, h.Columns, total)), nil, nil
}

func pageOf[T any](items []T, offset int, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

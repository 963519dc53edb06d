package tools

import (
	"context"

	"github.com/lexandro/fileorganizer-mcp/index"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// SearchArgs defines the input parameters for the organizer_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Words from the file path (e.g. 'holiday beach') or a file name wildcard (e.g. 'img_*.jpg')"`
	Category   string `json:"category,omitempty" jsonschema:"Only files in this category"`
	Extension  string `json:"extension,omitempty" jsonschema:"Only files with this extension"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of files to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Organizer *organizer.Organizer
	Columns   []string
	Logger    *logrus.Entry
}

// Handle processes an organizer_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	if args.Query == "" && args.Category == "" && args.Extension == "" {
		h.Logger.Warn("organizer_search called without criteria")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	found, err := h.Organizer.Search(index.SearchOptions{
		Query:      args.Query,
		Category:   args.Category,
		Extension:  args.Extension,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		h.Logger.WithError(err).WithField("query", args.Query).Error("organizer_search failed")
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.WithFields(logrus.Fields{"query": args.Query, "matches": len(found)}).Info("organizer_search")
	return textResult(FormatRecords(found, h.Columns, len(found))), nil, nil
}

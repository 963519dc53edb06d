package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// ExportArgs defines the input parameters for the organizer_export tool.
type ExportArgs struct {
	Category   string `json:"category,omitempty" jsonschema:"Only files in this category"`
	Extension  string `json:"extension,omitempty" jsonschema:"Only files with this extension"`
	Glob       string `json:"glob,omitempty" jsonschema:"Only files whose relative path matches this glob"`
	OutputPath string `json:"outputPath,omitempty" jsonschema:"Write the CSV to this file instead of returning it"`
}

// ExportHandler holds the dependencies for the export tool.
type ExportHandler struct {
	Organizer *organizer.Organizer
	Logger    *logrus.Entry
}

// Handle processes an organizer_export request.
func (h *ExportHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ExportArgs) (*mcp.CallToolResult, any, error) {
	matched, err := h.Organizer.Query(results.Filter{
		Category:  args.Category,
		Extension: args.Extension,
		Glob:      args.Glob,
	})
	if err != nil {
		return errorResult("Export error: %v", err), nil, nil
	}

	var buf bytes.Buffer
	if err := results.WriteCSV(&buf, matched); err != nil {
		h.Logger.WithError(err).Error("organizer_export failed")
		return errorResult("Export error: %v", err), nil, nil
	}

	h.Logger.WithFields(logrus.Fields{"records": len(matched), "output": args.OutputPath}).Info("organizer_export")

	if args.OutputPath == "" {
		return textResult(buf.String()), nil, nil
	}
	if err := os.WriteFile(args.OutputPath, buf.Bytes(), 0644); err != nil {
		return errorResult("Cannot write %s: %v", args.OutputPath, err), nil, nil
	}
	return textResult(fmt.Sprintf("Exported %d files to %s", len(matched), args.OutputPath)), nil, nil
}

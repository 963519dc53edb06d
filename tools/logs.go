package tools

import (
	"context"
	"strings"

	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const defaultLogLimit = 50

// LogsArgs defines the input parameters for the organizer_logs tool.
type LogsArgs struct {
	Level string `json:"level,omitempty" jsonschema:"Lowest level to show: debug, info, warning or error (default info)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of records, newest last (default 50)"`
}

// LogsHandler holds the dependencies for the logs tool.
type LogsHandler struct {
	Sink *logging.Sink
}

// Handle processes an organizer_logs request.
func (h *LogsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args LogsArgs) (*mcp.CallToolResult, any, error) {
	level := logrus.InfoLevel
	if args.Level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(args.Level))
		if err != nil {
			return errorResult("Error: unknown level %q", args.Level), nil, nil
		}
		level = parsed
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	return textResult(FormatLogRecords(h.Sink.Recent(limit, level))), nil, nil
}

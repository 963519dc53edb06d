package server

import (
	"github.com/lexandro/fileorganizer-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers registered by Setup.
type Handlers struct {
	Categories *tools.CategoriesHandler
	Scan       *tools.ScanHandler
	Query      *tools.QueryHandler
	Search     *tools.SearchHandler
	Status     *tools.StatusHandler
	Export     *tools.ExportHandler
	Logs       *tools.LogsHandler
}

// Setup creates the MCP server and registers all tools.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fileorganizer-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server sorts the files of a directory tree into user-defined categories by extension. It never moves, copies or deletes files.

Typical flow:
- organizer_categories to see which extensions belong where
- organizer_scan with a root directory to classify every file below it
- organizer_query or organizer_search to list results, organizer_status for totals
- organizer_category_add / _update / _remove to change categories; existing results are reclassified at once without rescanning
- organizer_logs to see skipped entries and other warnings`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_categories",
		Description: "List categories with their extensions. Files whose extension belongs to no category are Uncategorized.",
	}, h.Categories.HandleList)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "organizer_category_add",
		Description: `Add a category. Names are unique ignoring case. Each extension can belong to one category only; adding an extension owned by another category is rejected and nothing changes.

Extensions are case-insensitive and the leading dot is optional: "png .JPG gif" and "png,jpg,gif" are the same.`,
	}, h.Categories.HandleAdd)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_category_remove",
		Description: "Remove a category. Its extensions become free and its files Uncategorized.",
	}, h.Categories.HandleRemove)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_category_update",
		Description: "Add and remove extensions of a category in one step. Removals apply first; if any added extension belongs to another category nothing changes.",
	}, h.Categories.HandleUpdate)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "organizer_scan",
		Description: `Scan a directory recursively and classify every file by extension. A new scan cancels a running one and replaces the results unless append is set.

Unreadable entries are skipped and reported as warnings. Use background for large trees and poll organizer_status; cancel stops the running scan and keeps what was found.`,
	}, h.Scan.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "organizer_query",
		Description: `List scanned files, optionally filtered by category, extension and a glob over the relative path.

Glob examples:
  - "**/*.jpg" - all JPEG files
  - "photos/**" - everything under photos/
  - "*.pdf" - PDFs in the root only`,
	}, h.Query.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_search",
		Description: "Find scanned files by words in their path (e.g. \"holiday 2024\") or a file name wildcard (e.g. \"img_*.jpg\"), optionally restricted to a category or extension.",
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_status",
		Description: "Show the scan root, file count, total size, files per category, scan progress, memory usage and uptime.",
	}, h.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_export",
		Description: "Export scanned files as CSV (path, name, category, extension, size_bytes, modified), optionally filtered, returned inline or written to outputPath.",
	}, h.Export.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "organizer_logs",
		Description: "Show recent log records, newest last. Use level to include debug output or restrict to warnings and errors.",
	}, h.Logs.Handle)

	return mcpServer
}

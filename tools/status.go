package tools

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// StatusArgs defines the input parameters for the organizer_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Organizer *organizer.Organizer
	StartTime time.Time
	// Watching reports the directory under live watch, if any. Optional.
	Watching func() string
	Logger   *logrus.Entry
}

// Handle processes an organizer_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	status := h.Organizer.Status()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.WithFields(logrus.Fields{
		"files":     status.Files,
		"totalSize": status.TotalSizeBytes,
		"memory":    memStats.Alloc,
		"uptime":    uptime,
	}).Info("organizer_status")

	root := status.Root
	if root == "" {
		root = "(nothing scanned yet)"
	}

	builder.WriteString("=== fileorganizer-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Scan root: %s\n", root))
	if h.Watching != nil {
		if watched := h.Watching(); watched != "" {
			builder.WriteString(fmt.Sprintf("Watching: %s\n", watched))
		}
	}
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Files: %s\n", humanize.Comma(int64(status.Files))))
	builder.WriteString(fmt.Sprintf("Total size: %s\n", humanize.IBytes(uint64(status.TotalSizeBytes))))
	builder.WriteString(fmt.Sprintf("Categories: %d (registry version %d, index version %d)\n",
		status.Categories, status.RegistryVersion, status.IndexVersion))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		humanize.IBytes(memStats.Alloc),
		humanize.IBytes(memStats.HeapAlloc),
	))

	if scan := status.ActiveScan; scan != nil {
		builder.WriteString(fmt.Sprintf("\nScan %s running on %s: %s files, %d warnings, %s elapsed\n",
			scan.ID, scan.Root, humanize.Comma(scan.Files), scan.Warnings, scan.Elapsed))
	}

	if len(status.CategoryCounts) > 0 {
		builder.WriteString("\nFiles per category:\n")
		builder.WriteString(FormatCategoryCounts(status.CategoryCounts))
	}

	return textResult(builder.String()), nil, nil
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/scanner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// ScanArgs defines the input parameters for the organizer_scan tool.
type ScanArgs struct {
	Root       string `json:"root" jsonschema:"Directory to scan (absolute, or relative to the server's working directory)"`
	Append     bool   `json:"append,omitempty" jsonschema:"Keep the current results and add the new ones (default: replace)"`
	Background bool   `json:"background,omitempty" jsonschema:"Return immediately and scan in the background; poll organizer_status for progress"`
	Cancel     bool   `json:"cancel,omitempty" jsonschema:"Cancel the running scan instead of starting one"`
}

// ScanHandler holds the dependencies for the scan tool.
type ScanHandler struct {
	Organizer *organizer.Organizer
	// OnStarted is called with the resolved root after a scan has started. Optional.
	OnStarted func(rootDir string)
	Logger    *logrus.Entry
}

// Handle processes an organizer_scan request.
func (h *ScanHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ScanArgs) (*mcp.CallToolResult, any, error) {
	if args.Cancel {
		if h.Organizer.CancelScan() {
			return textResult("Scan cancelled. Results found so far are kept."), nil, nil
		}
		return textResult("No scan is running."), nil, nil
	}

	if strings.TrimSpace(args.Root) == "" {
		return errorResult("Error: root parameter is required"), nil, nil
	}

	scanCtx := ctx
	if args.Background {
		scanCtx = context.WithoutCancel(ctx)
	}

	handle, err := h.Organizer.StartScan(scanCtx, args.Root, organizer.ScanRequest{Append: args.Append})
	if err != nil {
		if errors.Is(err, scanner.ErrInvalidRoot) {
			return errorResult("Cannot scan: %v", err), nil, nil
		}
		return errorResult("Scan error: %v", err), nil, nil
	}
	if h.OnStarted != nil {
		h.OnStarted(handle.Root)
	}

	if args.Background {
		h.Logger.WithFields(logrus.Fields{"scan": handle.ID, "root": handle.Root}).Info("organizer_scan started in background")
		return textResult(fmt.Sprintf("Scan %s of %s started.", handle.ID, handle.Root)), nil, nil
	}

	summary := handle.Wait()
	if summary.Err != nil {
		return errorResult("Scan of %s failed: %v", summary.Root, summary.Err), nil, nil
	}

	h.Logger.WithFields(logrus.Fields{
		"scan":     summary.ID,
		"files":    summary.Files,
		"warnings": summary.Warnings,
	}).Info("organizer_scan")

	return textResult(FormatScanSummary(summary, h.Organizer.Store().CategoryCounts())), nil, nil
}

// FormatScanSummary describes a finished scan.
func FormatScanSummary(summary organizer.ScanSummary, counts map[string]int) string {
	var builder strings.Builder
	state := "finished"
	if summary.Cancelled {
		state = "cancelled"
	}
	builder.WriteString(fmt.Sprintf("Scan of %s %s: %s files in %s",
		summary.Root, state, humanize.Comma(summary.Files), summary.Duration.Round(time.Millisecond)))
	if summary.Warnings > 0 {
		builder.WriteString(fmt.Sprintf(", %d entries skipped (see organizer_logs)", summary.Warnings))
	}
	builder.WriteString("\n")
	if len(counts) > 0 {
		builder.WriteString("\nCategories:\n")
		builder.WriteString(FormatCategoryCounts(counts))
	}
	return builder.String()
}

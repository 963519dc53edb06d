// Package display renders scan results and log records for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/lexandro/fileorganizer-mcp/classify"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Colors shared by tables and log lines.
const (
	ColorError   = "#EF4444"
	ColorWarning = "#F59E0B"
	ColorInfo    = "#3B82F6"
	ColorMuted   = "#6B7280"
	ColorHeader  = "#A78BFA"
)

// levelColors maps log levels to their display color.
var levelColors = map[logrus.Level]string{
	logrus.PanicLevel: ColorError,
	logrus.FatalLevel: ColorError,
	logrus.ErrorLevel: ColorError,
	logrus.WarnLevel:  ColorWarning,
	logrus.InfoLevel:  ColorInfo,
	logrus.DebugLevel: ColorMuted,
	logrus.TraceLevel: ColorMuted,
}

// Printer writes styled output. With color off every style is plain.
type Printer struct {
	w        io.Writer
	noColor  bool
	renderer *lipgloss.Renderer
}

// NewPrinter creates a printer for w. Colors are used only when w is a
// terminal and noColor is false.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	if !noColor && !IsTerminal(w) {
		noColor = true
	}
	return &Printer{w: w, noColor: noColor, renderer: lipgloss.NewRenderer(w)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) style(color string) lipgloss.Style {
	if p.noColor {
		return p.renderer.NewStyle()
	}
	return p.renderer.NewStyle().Foreground(lipgloss.Color(color))
}

// LevelStyle returns the style for a log level name such as "warning".
func (p *Printer) LevelStyle(level string) lipgloss.Style {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return p.style(ColorMuted)
	}
	return p.style(levelColors[parsed])
}

// FormatLogRecord renders one record as a single line.
func (p *Printer) FormatLogRecord(record logging.Record) string {
	level := p.LevelStyle(record.Level).Render(fmt.Sprintf("%-7s", strings.ToUpper(record.Level)))
	line := fmt.Sprintf("%s %s", level, record.Message)
	if path, ok := record.Fields["path"]; ok {
		line += " " + p.style(ColorMuted).Render(fmt.Sprint(path))
	}
	if err, ok := record.Fields[logrus.ErrorKey]; ok {
		line += ": " + fmt.Sprint(err)
	}
	return line
}

// LogRecord prints one record.
func (p *Printer) LogRecord(record logging.Record) {
	fmt.Fprintln(p.w, p.FormatLogRecord(record))
}

// Table renders records with the given columns. Uncategorized cells are muted.
func (p *Printer) Table(records []classify.Record, columns []string) string {
	if len(columns) == 0 {
		columns = results.DefaultColumns
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, results.Cells(record, columns))
	}

	categoryColumn := -1
	visible := 0
	for _, column := range columns {
		if results.Header(column) == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(column), "category") {
			categoryColumn = visible
		}
		visible++
	}

	headerStyle := p.style(ColorHeader).Bold(!p.noColor)
	cellStyle := p.renderer.NewStyle().Padding(0, 1)
	mutedStyle := p.style(ColorMuted).Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.style(ColorMuted)).
		Headers(results.Headers(columns)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == categoryColumn && row >= 0 && row < len(records) && !records[row].IsCategorized() {
				return mutedStyle
			}
			return cellStyle
		})
	return t.Render()
}

// PrintTable writes the records table followed by a newline.
func (p *Printer) PrintTable(records []classify.Record, columns []string) {
	fmt.Fprintln(p.w, p.Table(records, columns))
}

// Println writes plain text.
func (p *Printer) Println(text string) {
	fmt.Fprintln(p.w, text)
}

// Emphasis renders text in the header color.
func (p *Printer) Emphasis(text string) string {
	return p.style(ColorHeader).Render(text)
}

package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Format selects how command output is rendered
type Format string

const (
	// FormatDetailed renders styled boxes and bordered tables
	FormatDetailed Format = "detailed"
	// FormatCompact renders one tab-separated line per row, without styling
	FormatCompact Format = "compact"
	// FormatJSON renders the raw values as indented JSON
	FormatJSON Format = "json"
)

// Formats lists the accepted --format values
var Formats = []Format{FormatDetailed, FormatCompact, FormatJSON}

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (expected detailed, compact, or json)", s)
}

// Table is a titled grid of rows
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Detail is one ordered key/value line
type Detail struct {
	Key   string
	Value string
}

// Printer writes command output in the selected Format. The first write
// or encoding error is kept and reported by Err; later output is dropped.
type Printer struct {
	out    io.Writer
	width  int
	format Format
	err    error
}

// NewPrinter creates a Printer that writes to w in the given format.
// If w is nil, os.Stdout is used. An empty format means FormatDetailed.
func NewPrinter(w io.Writer, format Format) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatDetailed
	}
	return &Printer{
		out:    w,
		width:  GetTerminalWidth(),
		format: format,
	}
}

// Width returns the terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Format returns the printer's output format
func (p *Printer) Format() Format {
	return p.format
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Err returns the first error hit while writing output
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) write(f func(w io.Writer) error) {
	if p.err != nil {
		return
	}
	if err := f(p.out); err != nil {
		p.err = fmt.Errorf("failed to write output: %w", err)
	}
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	p.write(func(w io.Writer) error {
		_, err := fmt.Fprint(w, content)
		return err
	})
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	p.write(func(w io.Writer) error {
		_, err := fmt.Fprintln(w, content)
		return err
	})
}

// Newline prints an empty line
func (p *Printer) Newline() {
	p.Println("")
}

// PrintHeader prints a command header box. Only the detailed format has headers.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	if p.format != FormatDetailed {
		return
	}
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box, or "ok" lines in compact form
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	switch p.format {
	case FormatJSON:
		p.PrintJSON(map[string]any{"status": "ok", "message": title, "details": details})
	case FormatCompact:
		p.Println("ok\t" + title)
		for _, key := range sortedKeys(details) {
			p.Println(key + "\t" + details[key])
		}
	default:
		p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
	}
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	switch p.format {
	case FormatJSON:
		p.PrintJSON(map[string]any{"status": "warning", "message": title, "details": details})
	case FormatCompact:
		p.Println("warning\t" + title)
	default:
		p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
	}
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, hints []string) {
	switch p.format {
	case FormatJSON:
		out := map[string]any{"status": "error", "message": title}
		if err != nil {
			out["error"] = err.Error()
		}
		if len(hints) > 0 {
			out["hints"] = hints
		}
		p.PrintJSON(out)
	case FormatCompact:
		line := "error\t" + title
		if err != nil {
			line += "\t" + err.Error()
		}
		p.Println(line)
	default:
		p.Println(NewFailureResult(title, err, hints).SetWidth(p.width).Render())
	}
}

// PrintJSON writes v as indented JSON
func (p *Printer) PrintJSON(v any) {
	p.write(func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

// PrintTable prints t. In JSON format rows become objects keyed by header.
func (p *Printer) PrintTable(t Table) {
	switch p.format {
	case FormatJSON:
		objs := make([]map[string]string, 0, len(t.Rows))
		for _, row := range t.Rows {
			obj := make(map[string]string, len(t.Headers))
			for i, h := range t.Headers {
				if i < len(row) {
					obj[jsonKey(h)] = row[i]
				}
			}
			objs = append(objs, obj)
		}
		p.PrintJSON(objs)
	case FormatCompact:
		for _, row := range t.Rows {
			p.Println(strings.Join(row, "\t"))
		}
	default:
		p.Println(RenderTable(t, p.width))
	}
}

// PrintDetails prints an ordered key/value block under a title
func (p *Printer) PrintDetails(title string, details []Detail) {
	switch p.format {
	case FormatJSON:
		obj := make(map[string]string, len(details))
		for _, d := range details {
			obj[jsonKey(d.Key)] = d.Value
		}
		p.PrintJSON(obj)
	case FormatCompact:
		for _, d := range details {
			p.Println(d.Key + "\t" + d.Value)
		}
	default:
		p.Println(RenderDetails(title, details))
	}
}

// RenderTable renders t as a bordered table no wider than width
func RenderTable(t Table, width int) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}

	if t.Title == "" {
		return tbl.String()
	}
	return lipgloss.JoinVertical(lipgloss.Left, HeaderTitleStyle.Render(t.Title), tbl.String())
}

// RenderDetails renders a titled key/value block
func RenderDetails(title string, details []Detail) string {
	var lines []string
	if title != "" {
		lines = append(lines, HeaderTitleStyle.Render(title))
	}
	for _, d := range details {
		lines = append(lines, DetailKeyStyle.Render("   "+d.Key+":")+" "+DetailValueStyle.Render(d.Value))
	}
	return strings.Join(lines, "\n")
}

// jsonKey turns a column title like "Control URL" into "control_url"
func jsonKey(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

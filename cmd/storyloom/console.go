package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"storyloom/internal/store"
)

// tone picks the label and colour of a status line.
type tone int

const (
	toneInfo tone = iota
	toneGood
	toneWarn
	toneBad
)

var toneStyles = map[tone]struct {
	label string
	color text.Color
}{
	toneInfo: {"INFO", text.FgBlue},
	toneGood: {"OK", text.FgGreen},
	toneWarn: {"WARN", text.FgYellow},
	toneBad:  {"ERROR", text.FgRed},
}

// statusTone maps a story lifecycle status onto a display tone.
func statusTone(status store.Status) tone {
	switch status {
	case store.StatusCompleted:
		return toneGood
	case store.StatusFailed:
		return toneBad
	case store.StatusGenerating:
		return toneWarn
	}
	return toneInfo
}

const checkLabelWidth = 20

// console is a command's stdout plus whether it is a colour terminal.
type console struct {
	w     io.Writer
	color bool
}

func newConsole(cmd *cobra.Command) *console {
	w := cmd.OutOrStdout()
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &console{w: w, color: color}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) paint(color text.Color, s string) string {
	if !c.color {
		return s
	}
	return color.Sprint(s)
}

// section prints a title underlined to its own width.
func (c *console) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	c.printf("%s\n%s\n", c.paint(text.FgBlue, heading), c.paint(text.FgBlue, strings.Repeat("-", len(heading))))
}

// check prints an aligned "label: [TONE] detail" line.
func (c *console) check(label string, t tone, detail string) {
	style := toneStyles[t]
	line := fmt.Sprintf("  %-*s [%s]", checkLabelWidth, label+":", style.label)
	if detail != "" {
		line += " " + detail
	}
	c.printf("%s\n", c.paint(style.color, line))
}

func (c *console) status(status store.Status) string {
	return c.paint(toneStyles[statusTone(status)].color, string(status))
}

// column describes one table column; numeric columns align right.
type column struct {
	title   string
	numeric bool
}

func (c *console) table(columns []column, rows [][]string) {
	if len(columns) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, WidthMax: 60}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	c.printf("%s\n", tw.Render())
}

// json writes v indented; the --json output of every command goes through here.
func (c *console) json(v any) error {
	enc := json.NewEncoder(c.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package report renders run results and scan surveys for the console.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"bindery/internal/catalog"
	"bindery/internal/pipeline"
	"bindery/internal/scan"
)

const (
	ansiReset = "\x1b[0m"
	ansiBlue  = "\x1b[34m"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// Writer renders tables to an output stream, colorizing section headers only
// when the stream is a terminal.
type Writer struct {
	out      io.Writer
	colorize bool
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, colorize: shouldColorize(out)}
}

// Summary prints the run outcome table followed by error-kind counts and the
// list of non-committed files.
func (w *Writer) Summary(summary *pipeline.Summary) {
	total, committed, quarantined, failed, skipped := summary.Counts()

	w.section(fmt.Sprintf("Run %s (%s)", summary.RunID, summary.Mode))
	w.table(
		[]string{"Outcome", "Files"},
		[][]string{
			{"Committed", fmt.Sprintf("%d", committed)},
			{"Quarantined", fmt.Sprintf("%d", quarantined)},
			{"Failed", fmt.Sprintf("%d", failed)},
			{"Skipped", fmt.Sprintf("%d", skipped)},
			{"Total", fmt.Sprintf("%d", total)},
		},
		[]columnAlignment{alignLeft, alignRight},
	)

	if kinds := summary.ErrorKinds(); len(kinds) > 0 {
		w.section("Errors by kind")
		rows := make([][]string, 0, len(kinds))
		for _, kind := range kinds {
			rows = append(rows, []string{kind.Kind, fmt.Sprintf("%d", kind.Count)})
		}
		w.table([]string{"Kind", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	}

	if problems := summary.Problems(); len(problems) > 0 {
		w.section("Files needing attention")
		rows := make([][]string, 0, len(problems))
		for _, problem := range problems {
			rows = append(rows, []string{problem.Path, string(problem.Outcome), problem.Reason})
		}
		w.table([]string{"File", "Outcome", "Reason"}, rows, nil)
	}
}

// Run prints a persisted run and its non-committed records from the catalog.
func (w *Writer) Run(run *catalog.Run, records []catalog.Record) {
	state := "running"
	if run.Finished {
		state = "finished " + run.FinishedAt.Format("2006-01-02 15:04:05")
	}
	w.section(fmt.Sprintf("Run %s (%s, %s)", run.ID, run.Mode, state))
	w.table(
		[]string{"Outcome", "Files"},
		[][]string{
			{"Committed", fmt.Sprintf("%d", run.Committed)},
			{"Quarantined", fmt.Sprintf("%d", run.Quarantined)},
			{"Failed", fmt.Sprintf("%d", run.Failed)},
			{"Skipped", fmt.Sprintf("%d", run.Skipped)},
		},
		[]columnAlignment{alignLeft, alignRight},
	)

	var rows [][]string
	for _, record := range records {
		if record.Status == catalog.StatusCommitted {
			continue
		}
		rows = append(rows, []string{record.SourcePath, record.Status, record.ErrorMessage})
	}
	if len(rows) > 0 {
		w.section("Files needing attention")
		w.table([]string{"File", "Status", "Reason"}, rows, nil)
	}
}

// Survey prints the extension census with extractability probes.
func (w *Writer) Survey(stats []scan.ExtensionStat) {
	w.section("Extension survey")
	rows := make([][]string, 0, len(stats))
	for _, stat := range stats {
		ext := stat.Ext
		if ext == "" {
			ext = "(none)"
		}
		extractable := "yes"
		if !stat.Extractable {
			extractable = "no"
		}
		rows = append(rows, []string{ext, fmt.Sprintf("%d", stat.Count), extractable, stat.Detail})
	}
	w.table([]string{"Extension", "Files", "Extractable", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
}

func (w *Writer) section(title string) {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if w.colorize {
		line = ansiBlue + line + ansiReset
	}
	fmt.Fprintln(w.out, line)
}

func (w *Writer) table(headers []string, rows [][]string, aligns []columnAlignment) {
	fmt.Fprintln(w.out, renderTable(headers, rows, aligns))
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

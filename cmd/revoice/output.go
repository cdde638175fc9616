package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"revoice/internal/api"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"

	statusLabelWidth = 14
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := "INFO"
	color := ansiBlue
	switch kind {
	case statusOK:
		tag, color = "OK", ansiGreen
	case statusWarn:
		tag, color = "WARN", ansiYellow
	case statusError:
		tag, color = "ERROR", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", tag)
	if message != "" {
		line += " " + message
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "done":
		return statusOK
	case "error":
		return statusError
	case "processing":
		return statusWarn
	default:
		return statusInfo
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printJob writes a human-readable job summary.
func printJob(out io.Writer, record api.JobRecord, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("Job", jobStatusKind(record.Status), record.ID, colorize))
	fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Status:", record.Status)
	if record.Stage != "" {
		fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Stage:", record.Stage)
	}
	fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Source:", record.SourceURL)
	fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Language:", record.Language)
	if record.Result != nil {
		fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Audio:", record.Result.AudioURL)
		if record.Result.VideoURL != "" {
			fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Video:", record.Result.VideoURL)
		}
	}
	if msg := record.ErrorMessage(); msg != "" {
		fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Error:", msg)
	}
	fmt.Fprintf(out, "  %-*s %s\n", statusLabelWidth, "Updated:", record.UpdatedAt)
}

func jobRows(records []api.JobRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		outcome := r.ErrorMessage()
		if r.Result != nil {
			outcome = r.Result.AudioURL
		}
		rows = append(rows, []string{shortID(r.ID), r.Status, r.Stage, r.SourceID, r.Language, truncate(outcome, 60), r.UpdatedAt})
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func secondsDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Package output serializes probe reports. It supports CSV and JSON encodings
// over the stable record schema plus a human-readable console table, writing
// to a file path or any io.Writer. Field names are the stable schema consumed
// by downstream automation and are never dropped or renamed.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/fwprobe/fwprobe/internal/errors"
	"github.com/fwprobe/fwprobe/internal/logging"
	"github.com/fwprobe/fwprobe/internal/probing"
)

// Format identifies a report encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// csvHeader is the stable CSV column set, one column per schema field.
var csvHeader = []string{
	"target", "resolved_ip", "source_ip", "port",
	"protocol", "state", "latency_ms", "error_detail",
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatTable:
		return Format(s), nil
	}
	return "", errors.WrapOutputError(errors.CodeOutputFormat,
		fmt.Sprintf("unsupported output format %q", s), "", nil)
}

// Write encodes the report in the given format to w.
func Write(w io.Writer, report *probing.Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatTable:
		return writeTable(w, report)
	default:
		return writeCSV(w, report)
	}
}

// WriteFile encodes the report to a file, or to stdout when path is empty.
func WriteFile(path string, report *probing.Report, format Format) error {
	if path == "" {
		return Write(os.Stdout, report, format)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite,
			"failed to create report file", path, err)
	}
	defer file.Close()

	if err := Write(file, report, format); err != nil {
		return err
	}
	logging.InfoOutput("Report written",
		"path", path, "format", string(format), "records", len(report.Results))
	return nil
}

// writeCSV emits the header row followed by one row per result.
func writeCSV(w io.Writer, report *probing.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite, "failed to write CSV header", "", err)
	}
	for i := range report.Results {
		r := &report.Results[i]
		row := []string{
			r.Target,
			r.ResolvedIP,
			r.SourceIP,
			strconv.Itoa(r.Port),
			string(r.Protocol),
			string(r.State),
			strconv.FormatFloat(r.LatencyMS, 'f', 3, 64),
			r.ErrorDetail,
		}
		if err := cw.Write(row); err != nil {
			return errors.WrapOutputError(errors.CodeOutputWrite, "failed to write CSV row", "", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite, "failed to flush CSV output", "", err)
	}
	return nil
}

// writeJSON emits the whole report, results plus summary, as indented JSON.
func writeJSON(w io.Writer, report *probing.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite, "failed to encode JSON report", "", err)
	}
	return nil
}

// writeTable renders a console table followed by the summary line.
func writeTable(w io.Writer, report *probing.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Target", "Resolved IP", "Source IP", "Port", "Proto", "State", "Latency (ms)", "Detail")

	for i := range report.Results {
		r := &report.Results[i]
		_ = table.Append([]string{
			r.Target,
			r.ResolvedIP,
			r.SourceIP,
			strconv.Itoa(r.Port),
			string(r.Protocol),
			string(r.State),
			strconv.FormatFloat(r.LatencyMS, 'f', 1, 64),
			r.ErrorDetail,
		})
	}
	if err := table.Render(); err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite, "failed to render table", "", err)
	}

	s := report.Summary
	_, err := fmt.Fprintf(w, "\n%d probes: %d open, %d closed, %d filtered, %d unknown, %d error (%.2fs)\n",
		s.Total, s.Open, s.Closed, s.Filtered, s.Unknown, s.Error, report.Duration.Seconds())
	if err != nil {
		return errors.WrapOutputError(errors.CodeOutputWrite, "failed to write summary", "", err)
	}
	return nil
}

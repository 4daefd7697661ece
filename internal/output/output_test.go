package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwprobe/fwprobe/internal/probing"
)

func sampleReport() *probing.Report {
	report := &probing.Report{
		RunID: "test-run",
		Results: []probing.Result{
			{
				Target:     "web.example",
				ResolvedIP: "192.0.2.10",
				SourceIP:   "10.0.0.5",
				Port:       443,
				Protocol:   probing.ProtocolTCP,
				State:      probing.StateOpen,
				LatencyMS:  12.345,
			},
			{
				Target:     "web.example",
				ResolvedIP: "192.0.2.10",
				SourceIP:   "10.0.0.5",
				Port:       8443,
				Protocol:   probing.ProtocolTCP,
				State:      probing.StateFiltered,
				LatencyMS:  3000.0,
			},
			{
				Target:      "db.example",
				Port:        53,
				Protocol:    probing.ProtocolUDP,
				State:       probing.StateError,
				ErrorDetail: "cannot resolve \"db.example\"",
			},
		},
		Summary:  probing.Summary{Open: 1, Filtered: 1, Error: 1, Total: 3},
		Duration: 3*time.Second + 250*time.Millisecond,
	}
	return report
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "csv", want: FormatCSV},
		{input: "json", want: FormatJSON},
		{input: "table", want: FormatTable},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
		{input: "CSV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per result")

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"web.example", "192.0.2.10", "10.0.0.5", "443",
		"tcp", "open", "12.345", "",
	}, rows[1])
	assert.Equal(t, "8443", rows[2][3])
	assert.Equal(t, "filtered", rows[2][5])

	// Resolution failure row: empty resolved_ip, populated error_detail.
	assert.Equal(t, "", rows[3][1])
	assert.Equal(t, "error", rows[3][5])
	assert.Contains(t, rows[3][7], "db.example")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatJSON))

	var decoded struct {
		RunID   string           `json:"run_id"`
		Results []map[string]any `json:"results"`
		Summary probing.Summary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "test-run", decoded.RunID)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, probing.Summary{Open: 1, Filtered: 1, Error: 1, Total: 3}, decoded.Summary)

	// Every schema field must be present on every record, even when empty.
	for _, record := range decoded.Results {
		for _, field := range csvHeader {
			assert.Contains(t, record, field)
		}
	}
	assert.Equal(t, "web.example", decoded.Results[0]["target"])
	assert.Equal(t, float64(443), decoded.Results[0]["port"])
	assert.Equal(t, "open", decoded.Results[0]["state"])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "web.example")
	assert.Contains(t, out, "443")
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "filtered")
	assert.Contains(t, out, "3 probes: 1 open, 0 closed, 1 filtered, 0 unknown, 1 error (3.25s)")
}

func TestWriteEmptyReport(t *testing.T) {
	report := &probing.Report{RunID: "empty"}

	for _, format := range []Format{FormatCSV, FormatJSON, FormatTable} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, report, format))
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := t.TempDir() + "/report.csv"
	require.NoError(t, WriteFile(path, sampleReport(), FormatCSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(csvHeader, ",")))
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile(t.TempDir()+"/missing-dir/report.csv", sampleReport(), FormatCSV)
	assert.Error(t, err)
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTargetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadTargetsFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "one host per line",
			content: "10.0.0.1\nweb.example\n10.0.0.2\n",
			want:    []string{"10.0.0.1", "web.example", "10.0.0.2"},
		},
		{
			name:    "blank lines skipped",
			content: "10.0.0.1\n\n\n10.0.0.2\n",
			want:    []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:    "comment lines skipped",
			content: "# production hosts\n10.0.0.1\n# staging\n10.0.0.2\n",
			want:    []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:    "trailing comments stripped",
			content: "10.0.0.1  # kafka broker\n10.0.0.2\t# zookeeper\n",
			want:    []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:    "surrounding whitespace trimmed",
			content: "  10.0.0.1  \n\tweb.example\t\n",
			want:    []string{"10.0.0.1", "web.example"},
		},
		{
			name:    "comments only",
			content: "# nothing here\n#\n",
			want:    nil,
		},
		{
			name:    "empty file",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readTargetsFile(writeTargetsFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTargetsFileMissing(t *testing.T) {
	got, err := readTargetsFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single target",
			input: "10.0.0.1",
			want:  []string{"10.0.0.1"},
		},
		{
			name:  "comma separated",
			input: "10.0.0.1,web.example,10.0.0.2",
			want:  []string{"10.0.0.1", "web.example", "10.0.0.2"},
		},
		{
			name:  "whitespace trimmed",
			input: " 10.0.0.1 , web.example ",
			want:  []string{"10.0.0.1", "web.example"},
		},
		{
			name:  "empty entries dropped",
			input: "10.0.0.1,,10.0.0.2,",
			want:  []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTargets(tt.input))
		})
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-graph/internal/domain"
	"github.com/helixir/research-graph/internal/serialize"
)

const papersCSV = "Title-题名,Author-作者,Organ-单位,Keyword-关键词,PubTime-发表时间\n" +
	"Neural Network Optimization,Zhang Wei;Li Na,BUPT;Tsinghua,graphs;optimization,2021-03\n" +
	",Nobody,,,\n" +
	"Database Systems,Zhang Wei,BUPT,,2023\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "papers.csv")
	require.NoError(t, os.WriteFile(path, []byte(papersCSV), 0o600))
	return path
}

func TestConvertCommand(t *testing.T) {
	input := writeCSV(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "graph.ttl")
	storeCopy := filepath.Join(dir, "store", "complete_store.nt")

	out, err := execute(t, "convert", "-i", input, "-o", output, "--store-copy", storeCopy, "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "RDF Conversion Report")
	assert.Regexp(t, `Rows read:\s+3`, out)
	assert.Regexp(t, `Rows excluded:\s+1`, out)
	assert.Regexp(t, `Papers:\s+2`, out)

	g, err := serialize.LoadFile(output)
	require.NoError(t, err)
	copyGraph, err := serialize.LoadFile(storeCopy)
	require.NoError(t, err)
	assert.Equal(t, g.Len(), copyGraph.Len())
	assert.Positive(t, g.Len())
}

func TestConvertCommand_ReportFileAndFormat(t *testing.T) {
	input := writeCSV(t)
	dir := t.TempDir()
	output := filepath.Join(dir, "graph.out")
	report := filepath.Join(dir, "report.txt")

	out, err := execute(t, "convert", "-i", input, "-o", output, "--format", "jsonld", "--report", report)
	require.NoError(t, err)
	assert.Empty(t, out, "report goes to the file, not stdout")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	reportData, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(reportData), "Predicate frequency:")
}

func TestConvertCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "missing input file",
			args: []string{"convert", "-i", filepath.Join(dir, "absent.xls"), "-o", filepath.Join(dir, "g.ttl")},
			want: domain.ErrLoad,
		},
		{
			name: "unknown format",
			args: []string{"convert", "-i", writeCSV(t), "-o", filepath.Join(dir, "g.ttl"), "--format", "rdfxml"},
		},
		{
			name: "empty input",
			args: []string{"convert", "-i", "", "-o", filepath.Join(dir, "g.ttl")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestStatsCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "graph.nt")
	_, err := execute(t, "convert", "-i", writeCSV(t), "-o", output, "--report", filepath.Join(t.TempDir(), "r.txt"))
	require.NoError(t, err)

	out, err := execute(t, "stats", "-i", output)
	require.NoError(t, err)
	assert.Regexp(t, `Papers:\s+2`, out)
	assert.Regexp(t, `Authors:\s+2`, out)
	assert.Regexp(t, `Organizations:\s+2`, out)
	assert.Contains(t, out, "rdf:type")
}

func TestRunsCommand_InvalidID(t *testing.T) {
	for _, sub := range []string{"show", "delete"} {
		t.Run(sub, func(t *testing.T) {
			_, err := execute(t, "runs", sub, "not-a-uuid")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = "../pkg/inputs/testdata/simple.json"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func useTempLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solves.jsonl")
	t.Setenv("BMU_SOLVE_LOG__PATH", path)
	return path
}

func TestSolveCommandJSON(t *testing.T) {
	useTempLog(t)
	out, err := execute(t, "solve", input, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		SolveID   string `json:"solve_id"`
		RequestID int    `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.NotEmpty(t, doc.SolveID)
	assert.Equal(t, 5, doc.RequestID)
}

func TestSolveCommandUnknownFormat(t *testing.T) {
	useTempLog(t)
	_, err := execute(t, "solve", input, "--format", "xml")
	assert.Error(t, err)
	solveOpts.format = "table"
}

func TestSolveThenHistory(t *testing.T) {
	useTempLog(t)
	_, err := execute(t, "solve", input, "--format", "csv", "-o", filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)

	out, err := execute(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "BMU(BMU-7)")
}

func TestHistoryQuery(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	historyOpts.since = time.Hour
	historyOpts.limit = 3
	t.Cleanup(func() { historyOpts.since, historyOpts.limit = 0, 20 })

	q := historyQuery(now)
	assert.Equal(t, now.Add(-time.Hour), q.Start)
	assert.Equal(t, 3, q.Limit)
}

func TestSummarize(t *testing.T) {
	got := summarize([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond})
	assert.Equal(t, timings{Min: time.Millisecond, Max: 3 * time.Millisecond, Mean: 2 * time.Millisecond}, got)
	assert.Equal(t, timings{}, summarize(nil))
}

package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

var reportTime = time.Date(2024, time.March, 5, 14, 30, 22, 0, time.UTC)

func TestGenerateReportFileName(t *testing.T) {
	name := GenerateReportFileName("run_summary_{timestamp}_{run}", map[string]string{"run": "abc"}, reportTime)
	assert.Equal(t, "run_summary_20240305_143022_abc.txt", name)

	assert.Equal(t, "daily_20240305.log", GenerateReportFileName("daily_{date}.log", nil, reportTime))

	withUUID := GenerateReportFileName("{uuid}", nil, reportTime)
	assert.Len(t, strings.TrimSuffix(withUUID, ".txt"), 36)
}

func TestWriteIssueLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := WriteIssueLog(nil, "run-1", dir, reportTime)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NoDirExists(t, dir)

	r := validation.NewReport("sales")
	r.Warn("unknown_sku", 2, []string{"SKU999"}, "2 sales rows dropped")

	path, err = WriteIssueLog(r.Issues(), "run-1", dir, reportTime)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "issue_log_20240305_143022_run-1.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Total Issues: 1")
	assert.Contains(t, out, "Check:    unknown_sku")
	assert.Contains(t, out, "Samples:  SKU999")
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	summary := RunSummary{
		RunID:     "run-2",
		Command:   "clean-all",
		StartTime: reportTime,
		EndTime:   reportTime.Add(3 * time.Second),
		Stages: []StageSummary{{
			Stage:       "sales",
			Inputs:      []string{"data/raw/Sales_raw.csv"},
			Outputs:     []string{"data/clean/Sales_clean.csv"},
			RowsRead:    10,
			RowsWritten: 8,
			Dropped:     map[string]int{"unknown_sku": 2, "empty": 0},
			Warnings:    1,
		}},
		Failure: "",
	}

	path, err := WriteSummaryLog(summary, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "Status:     SUCCESS")
	assert.Contains(t, out, "Duration:   3s")
	assert.Contains(t, out, "Dropped:      2 (unknown_sku)")
	assert.NotContains(t, out, "(empty)")
}

func TestWriteSummaryLog_Failure(t *testing.T) {
	summary := RunSummary{RunID: "run-3", Command: "clean-sales", StartTime: reportTime, EndTime: reportTime,
		Failure: "clean inventory not found"}

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Status:     FAILED")
	assert.Contains(t, string(data), "Error:      clean inventory not found")
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.csv")
	require.NoError(t, os.WriteFile(file, []byte("a\n"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing.csv")))
}

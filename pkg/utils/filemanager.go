// =============================================================================
// Retail Star Schema Pipeline - Run Reports
// =============================================================================
//
// This module writes the human-readable reports of a pipeline run into the
// report directory:
//   - a run summary (stages, row counts, drops, issue counts, duration)
//   - an issue log, only when a stage raised validation issues
//   - directory management and report naming
//
// NAMING:
//   run_summary_<timestamp>_<run id>.txt
//   issue_log_<timestamp>_<run id>.txt
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/retail-star-schema/internal/validation"
)

const (
	rule       = "================================================================================\n"
	ruleThin   = "--------------------------------------------------------------------------------\n"
	timeLayout = "2006-01-02 15:04:05"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all given directories if they don't exist.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// =============================================================================
// REPORT FILE NAMING
// =============================================================================

// GenerateReportFileName expands a report file name format.
//
// Placeholders:
//
//	{uuid}      - A random UUID
//	{timestamp} - now as YYYYMMDD_HHMMSS
//	{date}      - now as YYYYMMDD
//	{time}      - now as HHMMSS
//	any key of params, e.g. {run}
//
// A ".txt" extension is added when the result has no extension.
//
// EXAMPLE:
//
//	format: "run_summary_{timestamp}_{run}"
//	params: {"run": "3f1c..."}
//	output: "run_summary_20240305_143022_3f1c....txt"
func GenerateReportFileName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{uuid}":      uuid.NewString(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if filepath.Ext(result) == "" {
		result += ".txt"
	}
	return result
}

// =============================================================================
// ISSUE LOG
// =============================================================================

// WriteIssueLog writes the validation issues of a run to the report
// directory. Nothing is written when there are no issues and the returned
// path is empty.
func WriteIssueLog(issues []validation.Issue, runID, reportDir string, now time.Time) (string, error) {
	if len(issues) == 0 {
		return "", nil
	}
	if err := EnsureDirectories(reportDir); err != nil {
		return "", err
	}

	name := GenerateReportFileName("issue_log_{timestamp}_{run}", map[string]string{"run": runID}, now)
	path := filepath.Join(reportDir, name)

	err := writeReport(path, func(w *bufio.Writer) {
		fmt.Fprintf(w, "Retail Star Schema Pipeline - Issue Log\n"+
			"Run ID:       %s\n"+
			"Generated:    %s\n"+
			"Total Issues: %d\n"+
			rule+"\n",
			runID, now.Format(timeLayout), len(issues))

		for i, issue := range issues {
			fmt.Fprintf(w, "Issue #%d\n"+
				"  Stage:    %s\n"+
				"  Severity: %s\n"+
				"  Check:    %s\n"+
				"  Message:  %s\n"+
				"  Rows:     %d\n",
				i+1, issue.Stage, issue.Severity, issue.Check, issue.Message, issue.Count)
			if len(issue.Samples) > 0 {
				fmt.Fprintf(w, "  Samples:  %s\n", strings.Join(issue.Samples, ", "))
			}
			w.WriteString("\n")
		}

		w.WriteString(rule + "End of Issue Log\n")
	})
	if err != nil {
		return "", fmt.Errorf("failed to write issue log: %w", err)
	}
	return path, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a pipeline run.
type RunSummary struct {
	RunID     string
	Command   string
	StartTime time.Time
	EndTime   time.Time
	Stages    []StageSummary
	// Failure holds the error that stopped the run, empty on success.
	Failure string
}

// StageSummary contains the outcome of one stage.
type StageSummary struct {
	Stage       string
	Inputs      []string
	Outputs     []string
	RowsRead    int
	RowsWritten int
	Dropped     map[string]int
	Warnings    int
	Errors      int
	Duration    time.Duration
}

// WriteSummaryLog writes a run summary to the report directory.
func WriteSummaryLog(summary RunSummary, reportDir string) (string, error) {
	if err := EnsureDirectories(reportDir); err != nil {
		return "", err
	}

	name := GenerateReportFileName("run_summary_{timestamp}_{run}",
		map[string]string{"run": summary.RunID}, summary.StartTime)
	path := filepath.Join(reportDir, name)

	status := "SUCCESS"
	if summary.Failure != "" {
		status = "FAILED"
	}

	err := writeReport(path, func(w *bufio.Writer) {
		fmt.Fprintf(w, "Retail Star Schema Pipeline - Run Summary\n"+
			rule+"\n"+
			"Run Information:\n"+
			"  Run ID:     %s\n"+
			"  Command:    %s\n"+
			"  Start Time: %s\n"+
			"  End Time:   %s\n"+
			"  Duration:   %s\n"+
			"  Status:     %s\n",
			summary.RunID,
			summary.Command,
			summary.StartTime.Format(timeLayout),
			summary.EndTime.Format(timeLayout),
			summary.EndTime.Sub(summary.StartTime).String(),
			status)
		if summary.Failure != "" {
			fmt.Fprintf(w, "  Error:      %s\n", summary.Failure)
		}
		w.WriteString("\n")

		if len(summary.Stages) > 0 {
			w.WriteString("Stages:\n" + ruleThin)
		}
		for _, st := range summary.Stages {
			fmt.Fprintf(w, "  Stage:        %s\n", st.Stage)
			for _, in := range st.Inputs {
				fmt.Fprintf(w, "  Input:        %s\n", in)
			}
			for _, out := range st.Outputs {
				fmt.Fprintf(w, "  Output:       %s\n", out)
			}
			fmt.Fprintf(w, "  Rows Read:    %d\n"+
				"  Rows Written: %d\n",
				st.RowsRead, st.RowsWritten)

			reasons := make([]string, 0, len(st.Dropped))
			for reason, n := range st.Dropped {
				if n > 0 {
					reasons = append(reasons, reason)
				}
			}
			sort.Strings(reasons)
			for _, reason := range reasons {
				fmt.Fprintf(w, "  Dropped:      %d (%s)\n", st.Dropped[reason], reason)
			}

			fmt.Fprintf(w, "  Warnings:     %d\n"+
				"  Errors:       %d\n"+
				"  Process Time: %s\n\n",
				st.Warnings, st.Errors, st.Duration.String())
		}

		w.WriteString(rule + "End of Summary\n")
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return path, nil
}

// writeReport creates path and fills it through a buffered writer.
func writeReport(path string, fill func(w *bufio.Writer)) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	w := bufio.NewWriter(file)
	fill(w)
	return w.Flush()
}

// =============================================================================
// Retail Star Schema Pipeline - Validation Report
// =============================================================================
//
// This module collects the observational findings of every stage. Only
// schema mismatches stop a stage; everything else is recorded here as an
// Issue and surfaced in the run log and the issue report:
//   - wrong column types in the raw extract
//   - malformed values coerced to defaults
//   - dropped incomplete or unmatched rows
//   - duplicate identifiers
//   - suspicious values (future dates, outlier quantities, malformed SKUs)
//
// SEVERITY:
//   "warning" : an expected anomaly handled by a cleaning rule
//   "error"   : a post-condition that does not hold after cleaning
//
// Neither severity changes the pipeline's exit path.
//
// =============================================================================

package validation

import (
	"fmt"
	"log/slog"
	"strings"
)

// Severity levels.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// maxSamples bounds the number of example values kept per issue.
const maxSamples = 5

// =============================================================================
// ISSUE
// =============================================================================

// Issue is one finding of a stage, aggregated over all affected rows.
type Issue struct {
	// Stage is the stage that raised the issue (e.g. "inventory").
	Stage string

	// Severity is SeverityWarning or SeverityError.
	Severity string

	// Check is a stable identifier of the rule (e.g. "duplicate_sku").
	Check string

	// Message is a human-readable description.
	Message string

	// Count is the number of affected rows.
	Count int

	// Samples holds up to maxSamples offending values.
	Samples []string
}

// String formats the issue on one line.
func (i Issue) String() string {
	s := fmt.Sprintf("[%s] %s/%s: %s (rows: %d)",
		strings.ToUpper(i.Severity), i.Stage, i.Check, i.Message, i.Count)
	if len(i.Samples) > 0 {
		s += fmt.Sprintf(" e.g. %s", strings.Join(quoteAll(i.Samples), ", "))
	}
	return s
}

// =============================================================================
// REPORT
// =============================================================================

// Report accumulates the issues of one stage.
type Report struct {
	stage  string
	issues []Issue
}

// NewReport creates an empty report for a stage.
func NewReport(stage string) *Report {
	return &Report{stage: stage}
}

// Warn records a warning. Nothing is recorded when count is zero.
func (r *Report) Warn(check string, count int, samples []string, format string, args ...any) {
	r.add(SeverityWarning, check, count, samples, format, args...)
}

// Error records a failed post-condition. Nothing is recorded when count is zero.
func (r *Report) Error(check string, count int, samples []string, format string, args ...any) {
	r.add(SeverityError, check, count, samples, format, args...)
}

func (r *Report) add(severity, check string, count int, samples []string, format string, args ...any) {
	if count == 0 {
		return
	}
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	r.issues = append(r.issues, Issue{
		Stage:    r.stage,
		Severity: severity,
		Check:    check,
		Message:  fmt.Sprintf(format, args...),
		Count:    count,
		Samples:  append([]string(nil), samples...),
	})
}

// Issues returns a copy of the recorded issues in the order they were raised.
func (r *Report) Issues() []Issue {
	return append([]Issue(nil), r.issues...)
}

// Has reports whether an issue with the given check was recorded.
func (r *Report) Has(check string) bool {
	_, ok := r.Find(check)
	return ok
}

// Find returns the first issue with the given check.
func (r *Report) Find(check string) (Issue, bool) {
	for _, issue := range r.issues {
		if issue.Check == check {
			return issue, true
		}
	}
	return Issue{}, false
}

// Counts returns the number of warnings and errors.
func (r *Report) Counts() (warnings, errors int) {
	for _, issue := range r.issues {
		if issue.Severity == SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return warnings, errors
}

// Passed reports whether every post-condition held.
func (r *Report) Passed() bool {
	_, errs := r.Counts()
	return errs == 0
}

// Log writes every issue to the logger at the matching level.
func (r *Report) Log(logger *slog.Logger) {
	for _, issue := range r.issues {
		attrs := []any{
			"stage", issue.Stage,
			"check", issue.Check,
			"rows", issue.Count,
		}
		if len(issue.Samples) > 0 {
			attrs = append(attrs, "samples", issue.Samples)
		}
		if issue.Severity == SeverityError {
			logger.Error(issue.Message, attrs...)
		} else {
			logger.Warn(issue.Message, attrs...)
		}
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatIssues formats issues for display, one per line.
func FormatIssues(issues []Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d issue(s):\n", len(issues))
	for i, issue := range issues {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, issue.String())
	}
	return sb.String()
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	r := New()
	r.ObserveStage(StageObservation{
		Stage:    "sales",
		Read:     10,
		Written:  7,
		Dropped:  map[string]int{"unknown_sku": 2, "invalid_date": 1, "empty": 0},
		Warnings: 3,
		Duration: 1500 * time.Millisecond,
	})

	assert.Equal(t, 10.0, testutil.ToFloat64(r.rowsRead.WithLabelValues("sales")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.rowsWritten.WithLabelValues("sales")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rowsDropped.WithLabelValues("sales", "unknown_sku")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.issues.WithLabelValues("sales", "warning")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.stageDuration.WithLabelValues("sales")))

	// Zero drop counts are not exported.
	assert.Equal(t, 2, testutil.CollectAndCount(r.rowsDropped))
}

func TestObserveRun(t *testing.T) {
	r := New()
	finished := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

	r.ObserveRun(nil, finished)
	r.ObserveRun(errors.New("boom"), finished.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failure")))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(r.lastSuccess))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.ObserveStage(StageObservation{Stage: "inventory", Read: 4, Written: 3})

	path := filepath.Join(t.TempDir(), "textfile", "retail.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `retail_pipeline_rows_read_total{stage="inventory"} 4`)
	assert.Contains(t, string(data), "# TYPE retail_pipeline_rows_written_total counter")
}

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	var m Recorder = Noop{}
	m.ObserveBook("changed", 1, 0, 0.1)
}

func TestPromMetrics(t *testing.T) {
	p := NewProm("epubtidy")
	p.ObserveBook("changed", 3, 1, 0.2)
	p.ObserveBook("unchanged", 0, 0, 0.05)
	p.ObserveBook("changed", 2, 0, 0.3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.books.WithLabelValues("changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.books.WithLabelValues("unchanged")))
	assert.Equal(t, 5.0, testutil.ToFloat64(p.rewritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.entryFailures))

	families, err := p.Gatherer().Gather()
	require.NoError(t, err)
	assert.True(t, hasMetric(families, "epubtidy_book_duration_seconds", map[string]string{"status": "changed"}))
}

func TestWriteTextfile(t *testing.T) {
	p := NewProm("epubtidy")
	p.ObserveBook("failed", 0, 0, 0.01)

	path := filepath.Join(t.TempDir(), "epubtidy.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `epubtidy_books_processed_total{status="failed"} 1`), string(data))
}

func TestWriteTextfileBadPath(t *testing.T) {
	p := NewProm("epubtidy")
	err := p.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}

func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return true
			}
		}
	}
	return false
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	got := make(map[string]string, len(pairs))
	for _, lp := range pairs {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

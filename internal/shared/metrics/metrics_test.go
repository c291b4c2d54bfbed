package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}

	var buf bytes.Buffer
	writeHistogram(&buf, "test_ms", "test", snap)
	out := buf.String()
	for _, want := range []string{
		`test_ms_bucket{le="10"} 1`,
		`test_ms_bucket{le="100"} 2`,
		`test_ms_bucket{le="+Inf"} 3`,
		`test_ms_sum 555`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderIncludesGenerationCounters(t *testing.T) {
	IncGenerationStarted()
	AddSessionsSwept(2)

	out := Render()
	for _, name := range []string{"cv_generation_started_total", "sessions_swept_total", "cv_generation_duration_ms_count"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

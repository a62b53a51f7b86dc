package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"JobsTotal", JobsTotal},
		{"JobDuration", JobDuration},
		{"ProgressPercent", ProgressPercent},
		{"RejectedOperationsTotal", RejectedOperationsTotal},
		{"InputBytes", InputBytes},
		{"OutputBytes", OutputBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s is nil", tt.name)
			}
		})
	}
}

func TestJobsTotalCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(JobsTotal.WithLabelValues(OutcomeFailed))
	JobsTotal.WithLabelValues(OutcomeFailed).Inc()

	if got := testutil.ToFloat64(JobsTotal.WithLabelValues(OutcomeFailed)); got != before+1 {
		t.Fatalf("jobs_total{outcome=failed} = %v, want %v", got, before+1)
	}
}

func TestHandlerExposesInitializedSeries(t *testing.T) {
	InitializeMetrics()
	ProgressPercent.Set(42)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`media_transcoder_jobs_total{outcome="discarded"}`,
		`media_transcoder_rejected_operations_total{operation="startTranscode"}`,
		"media_transcoder_progress_percent 42",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

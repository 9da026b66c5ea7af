package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alextanhongpin/podreport/pkg/job"
	"github.com/alextanhongpin/podreport/pkg/report"
)

func TestObserveFire(t *testing.T) {
	m := New()

	m.ObserveFire(job.ReportGeneration, job.OutcomeSuccess, time.Second)
	m.ObserveFire(job.ReportGeneration, job.OutcomeSuccess, time.Second)
	m.ObserveFire(job.ReportGeneration, job.OutcomeFailed, time.Second)
	m.SetArmed(3)

	if got := testutil.ToFloat64(m.jobFires.WithLabelValues("report_generation", "success")); got != 2 {
		t.Fatalf("want 2 successful fires, got %v", got)
	}

	if got := testutil.ToFloat64(m.jobFires.WithLabelValues("report_generation", "failed")); got != 1 {
		t.Fatalf("want 1 failed fire, got %v", got)
	}

	if got := testutil.ToFloat64(m.armedJobs); got != 3 {
		t.Fatalf("want 3 armed jobs, got %v", got)
	}
}

func TestObserveReport(t *testing.T) {
	m := New()

	m.ObserveReport(report.Manual, true, time.Second)
	m.ObserveReport(report.Scheduled, false, time.Second)

	if got := testutil.ToFloat64(m.reports.WithLabelValues("manual", "success")); got != 1 {
		t.Fatalf("want 1 manual success, got %v", got)
	}

	if got := testutil.ToFloat64(m.reports.WithLabelValues("scheduled", "failure")); got != 1 {
		t.Fatalf("want 1 scheduled failure, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetArmed(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	b, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(b), "podreport_scheduler_armed_jobs 1") {
		t.Fatalf("armed jobs gauge missing from exposition:\n%s", b)
	}
}

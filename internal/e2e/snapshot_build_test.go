package e2e

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/meridian-fin/meridian-fin/internal/jobs"
	"github.com/meridian-fin/meridian-fin/jobs"
	_ "github.com/meridian-fin/meridian-fin/testing"
)

type stubSnapshotProcessor struct {
	ids []int64
	err error
}

func (s *stubSnapshotProcessor) Process(_ context.Context, snapshotID int64) error {
	s.ids = append(s.ids, snapshotID)
	return s.err
}

func TestSnapshotBuildJob(t *testing.T) {
	processor := &stubSnapshotProcessor{}
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	job := jobs.NewSnapshotBuildJob(processor, nil, metrics)
	task, err := jobs.NewStatementSnapshotTask(42)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("job handle: %v", err)
	}
	if len(processor.ids) != 1 || processor.ids[0] != 42 {
		t.Fatalf("expected one build for snapshot 42, got %v", processor.ids)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if !assertCounter(t, families, "meridian_jobs_total", map[string]string{"job": jobs.TaskStatementSnapshot, "status": "success"}, 1) {
		t.Fatalf("expected meridian_jobs_total increment for snapshot build")
	}
	if !metricExists(families, "meridian_job_duration_seconds") {
		t.Fatalf("expected meridian_job_duration_seconds to be recorded")
	}
}

func TestSnapshotBuildJobSkipsUnparsablePayload(t *testing.T) {
	processor := &stubSnapshotProcessor{}
	job := jobs.NewSnapshotBuildJob(processor, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	bad := asynq.NewTask(jobs.TaskStatementSnapshot, []byte("{"))
	if err := job.Handle(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for broken payload, got %v", err)
	}

	zero := asynq.NewTask(jobs.TaskStatementSnapshot, []byte(`{"snapshot_id":0}`))
	if err := job.Handle(context.Background(), zero); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for zero snapshot id, got %v", err)
	}
	if len(processor.ids) != 0 {
		t.Fatalf("processor must not run on rejected payloads, got %v", processor.ids)
	}
}

func TestSnapshotBuildJobRecordsFailure(t *testing.T) {
	processor := &stubSnapshotProcessor{err: errors.New("payload too large")}
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := jobs.NewSnapshotBuildJob(processor, nil, metrics)

	task, err := jobs.NewStatementSnapshotTask(7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err == nil {
		t.Fatal("expected processor failure to propagate for retry")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if !assertCounter(t, families, "meridian_jobs_total", map[string]string{"job": jobs.TaskStatementSnapshot, "status": "failure"}, 1) {
		t.Fatalf("expected failure status to be counted")
	}
	if !assertCounter(t, families, "meridian_jobs_failures_total", map[string]string{"job": jobs.TaskStatementSnapshot}, 1) {
		t.Fatalf("expected meridian_jobs_failures_total increment")
	}
}

func assertCounter(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string, expected float64) bool {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				if metric.GetCounter() == nil {
					return false
				}
				if metric.GetCounter().GetValue() == expected {
					return true
				}
			}
		}
	}
	return false
}

func metricExists(families []*dto.MetricFamily, name string) bool {
	for _, fam := range families {
		if fam.GetName() == name {
			return true
		}
	}
	return false
}

func matchLabels(pairs []*dto.LabelPair, expected map[string]string) bool {
	if len(expected) == 0 {
		return true
	}
	seen := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range expected {
		if seen[k] != v {
			return false
		}
	}
	return true
}

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/xldl/etf-rotor/pkg/config"
	"github.com/xldl/etf-rotor/pkg/logger"
)

func testLogger() *logger.Logger {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

type stubJob struct {
	name     string
	schedule string
	ran      chan struct{}
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(testLogger(), time.UTC)
	job := &stubJob{name: "a", schedule: "@daily", ran: make(chan struct{}, 1)}

	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}
	if err := s.AddJob(job); err == nil {
		t.Error("duplicate job accepted")
	}
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(testLogger(), time.UTC)
	job := &stubJob{name: "bad", schedule: "not a cron expr", ran: make(chan struct{}, 1)}

	if err := s.AddJob(job); err == nil {
		t.Error("invalid schedule accepted")
	}
}

func TestRunJobImmediately(t *testing.T) {
	s := New(testLogger(), time.UTC)
	job := &stubJob{name: "manual", schedule: "@daily", ran: make(chan struct{}, 1)}

	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob() failed: %v", err)
	}
	if err := s.RunJob("manual"); err != nil {
		t.Fatalf("RunJob() failed: %v", err)
	}

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	// History records the run (give the goroutine a moment to finish).
	deadline := time.Now().Add(2 * time.Second)
	for {
		h, err := s.GetJobHistory("manual")
		if err != nil {
			t.Fatalf("GetJobHistory() failed: %v", err)
		}
		if len(h.Results) == 1 {
			if !h.Results[0].Success {
				t.Error("job result not marked successful")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job result never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunJobUnknown(t *testing.T) {
	s := New(testLogger(), time.UTC)
	if err := s.RunJob("nope"); err == nil {
		t.Error("unknown job accepted")
	}
}

func TestJobHistoryCaps(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	if len(h.Results) != 100 {
		t.Errorf("history holds %d results, want 100", len(h.Results))
	}
	if rate := h.GetSuccessRate(); rate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", rate)
	}
}

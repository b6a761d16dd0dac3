package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newStartedService(t *testing.T) *Service {
	t.Helper()

	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	svc.Start()
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func TestAddJobValidation(t *testing.T) {
	svc := newStartedService(t)

	if _, err := svc.AddJob(" ", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("prune", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddIntervalJob("poll", 0, func() {}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	var nilService *Service
	if _, err := nilService.AddIntervalJob("poll", time.Second, func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestIntervalJobRunsAndIsRemoved(t *testing.T) {
	svc := newStartedService(t)

	ran := make(chan struct{}, 16)
	job, err := svc.AddIntervalJob("poll", 20*time.Millisecond, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("add interval job: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("interval job never ran")
	}

	if err := svc.RemoveJob(job.ID()); err != nil {
		t.Fatalf("remove job: %v", err)
	}
	if svc.JobCount() != 0 {
		t.Fatalf("expected no jobs, got %d", svc.JobCount())
	}
	if err := svc.RemoveJob(uuid.New()); err != nil {
		t.Fatalf("unknown job should not error, got %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	svc.Start()
	if err := svc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerEvery(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs atomic.Int32
	s.Every(10*time.Millisecond, FuncJob(func(ctx context.Context) {
		runs.Add(1)
	}))

	time.Sleep(60 * time.Millisecond)
	if runs.Load() < 2 {
		t.Errorf("expected at least 2 runs, got %d", runs.Load())
	}
}

func TestSchedulerStop(t *testing.T) {
	s := New()

	var runs atomic.Int32
	s.Every(10*time.Millisecond, FuncJob(func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Stop()
	time.Sleep(30 * time.Millisecond)
	before := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != before {
		t.Error("job still running after Stop")
	}
}

func TestSchedulerOnceAfter(t *testing.T) {
	s := New()
	defer s.Stop()

	var runs atomic.Int32
	s.OnceAfter(10*time.Millisecond, FuncJob(func(ctx context.Context) {
		runs.Add(1)
	}))

	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 1 {
		t.Errorf("expected exactly 1 run, got %d", runs.Load())
	}
}

func TestCronAdd(t *testing.T) {
	cr := NewCron(time.UTC)
	defer cr.Stop()

	if _, err := cr.Add("@hourly", FuncJob(func(ctx context.Context) {})); err != nil {
		t.Fatalf("failed to add cron job: %v", err)
	}
	if _, err := cr.Add("not-a-cron-expr", FuncJob(func(ctx context.Context) {})); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if len(cr.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(cr.Entries()))
	}
	cr.Start()
}

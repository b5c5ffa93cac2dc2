package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tripdeskhq/tripdesk-backend/pkg/logger"
)

type fakeCleanupRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeCleanupRepo) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type fakeRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeRetentionRepo) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingJob struct {
	name string
	runs int
	err  error
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestNotificationCleanupJob_UsesRetentionCutoff(t *testing.T) {
	repo := &fakeCleanupRepo{deleted: 3}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testCronLogger(),
		Repository: repo,
		Retention:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}

	before := time.Now().UTC().Add(-48 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	after := time.Now().UTC().Add(-48 * time.Hour)

	if repo.cutoff.Before(before) || repo.cutoff.After(after) {
		t.Fatalf("cutoff %s outside expected window", repo.cutoff)
	}
}

func TestNotificationCleanupJob_PropagatesRepoError(t *testing.T) {
	repo := &fakeCleanupRepo{err: errors.New("delete failed")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     testCronLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected repo error to propagate")
	}
}

func TestNotificationCleanupJob_Validates(t *testing.T) {
	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Repository: &fakeCleanupRepo{}}); err == nil {
		t.Fatalf("expected error for missing logger")
	}
	if _, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testCronLogger()}); err == nil {
		t.Fatalf("expected error for missing repository")
	}
}

func TestOutboxRetentionJob_DeletesInsideTransaction(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testCronLogger(),
		DB:         fakeTxRunner{},
		Repository: repo,
		Retention:  24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.cutoff.IsZero() {
		t.Fatalf("cutoff should be passed to the repository")
	}
}

func TestOutboxRetentionJob_PropagatesRepoError(t *testing.T) {
	repo := &fakeRetentionRepo{err: errors.New("delete failed")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testCronLogger(),
		DB:         fakeTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected repo error to propagate")
	}
}

func TestRegistry_KeepsOrderAndSkipsNil(t *testing.T) {
	first := &recordingJob{name: "first"}
	second := &recordingJob{name: "second"}
	registry := NewRegistry(first, nil, second)
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	if jobs[0].Name() != "first" || jobs[1].Name() != "second" {
		t.Fatalf("registration order not preserved")
	}
}

func TestService_RunCycleRunsAllJobsAndReleasesLock(t *testing.T) {
	store := newFakeRedisStore()
	lock, err := NewRedisLock(store, "td:lock:cron-test", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	first := &recordingJob{name: "first"}
	failing := &recordingJob{name: "failing", err: errors.New("job failed")}
	last := &recordingJob{name: "last"}

	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(first, failing, last),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if first.runs != 1 || failing.runs != 1 || last.runs != 1 {
		t.Fatalf("every job should run once even when one fails")
	}
	if _, held := store.values["td:lock:cron-test"]; held {
		t.Fatalf("lock should be released after the cycle")
	}
}

func TestService_SkipsCycleWhenLockHeld(t *testing.T) {
	store := newFakeRedisStore()
	store.values["td:lock:cron-test"] = "another-replica"
	lock, _ := NewRedisLock(store, "td:lock:cron-test", time.Minute)

	job := &recordingJob{name: "noop"}
	svc, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("jobs must not run while another replica holds the lock")
	}
}

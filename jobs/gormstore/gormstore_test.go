package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"github.com/kbukum/yttext/database"
	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/jobs"
	"github.com/kbukum/yttext/logger"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	cfg := database.Config{
		Enabled:  true,
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	}
	cfg.ApplyDefaults()
	db, err := database.NewWithContext(context.Background(), sqlite.Open(cfg.DSN), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func pendingJob(id string, created time.Time) *jobs.Job {
	return &jobs.Job{
		ID:             id,
		URL:            "https://www.youtube.com/watch?v=" + id,
		ModelRequested: "base",
		Status:         jobs.StatusPending,
		CreatedAt:      created,
		IPAddress:      "10.0.0.1",
	}
}

func TestCreateGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, pendingJob("a", created)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.Get(ctx, "a")
	if err != nil || got == nil {
		t.Fatalf("Get: %v %v", got, err)
	}
	if got.Status != jobs.StatusPending || got.ModelRequested != "base" || got.IPAddress != "10.0.0.1" {
		t.Errorf("unexpected job %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %s, want %s", got.CreatedAt, created)
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing job, got %v %v", missing, err)
	}
	err = repo.Create(ctx, pendingJob("a", created))
	if _, ok := apperrors.AsAppError(err); !ok {
		t.Errorf("expected duplicate create to fail with an app error, got %v", err)
	}
}

func TestUpdateLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := repo.Create(ctx, pendingJob("a", now)); err != nil {
		t.Fatal(err)
	}

	job, err := repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Status = jobs.StatusProcessing
		j.Phase = jobs.PhaseDownloading
		j.StartedAt = &now
		return nil
	})
	if err != nil || job.Status != jobs.StatusProcessing {
		t.Fatalf("start: %v %+v", err, job)
	}

	ms := int64(1200)
	job, err = repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Status = jobs.StatusCompleted
		j.Phase = jobs.PhaseComplete
		j.Progress = 100
		j.Text = "hello world"
		j.WordCount = 2
		j.CompletedAt = &now
		j.ProcessingTimeMs = &ms
		return nil
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	stored, _ := repo.Get(ctx, "a")
	if stored.Text != "hello world" || stored.ProcessingTimeMs == nil || *stored.ProcessingTimeMs != 1200 {
		t.Errorf("unexpected stored job %+v", stored)
	}

	_, err = repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Text = "changed"
		return nil
	})
	if !errors.Is(err, jobs.ErrTerminal) {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
	if again, _ := repo.Get(ctx, "a"); again.Text != "hello world" {
		t.Errorf("terminal job mutated: %q", again.Text)
	}
}

func TestUpdateRejectsInvalid(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	if err := repo.Create(ctx, pendingJob("a", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}

	_, err := repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Status = jobs.StatusCompleted
		return nil
	})
	if err == nil {
		t.Fatal("Expected pending -> completed to be rejected")
	}
	got, _ := repo.Get(ctx, "a")
	if got.Status != jobs.StatusPending {
		t.Errorf("rolled back status = %s", got.Status)
	}

	if _, err := repo.Update(ctx, "missing", func(*jobs.Job) error { return nil }); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	skipped, err := repo.Update(ctx, "a", func(*jobs.Job) error { return jobs.ErrSkip })
	if err != nil || skipped == nil || skipped.Status != jobs.StatusPending {
		t.Errorf("skip should return current job, got %+v %v", skipped, err)
	}
}

func TestResetOnlyFailed(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := repo.Create(ctx, pendingJob("a", now)); err != nil {
		t.Fatal(err)
	}

	if got, err := repo.Reset(ctx, "a"); err != nil || got != nil {
		t.Fatalf("reset of pending job should be a no-op, got %v %v", got, err)
	}

	if _, err := repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Status = jobs.StatusFailed
		j.Error = "Download failed: 404"
		j.ErrorCode = "DOWNLOAD_FAILED"
		j.CompletedAt = &now
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Reset(ctx, "a")
	if err != nil || got == nil {
		t.Fatalf("Reset: %v %v", got, err)
	}
	if got.Status != jobs.StatusPending || got.Error != "" || got.ErrorCode != "" || got.CompletedAt != nil {
		t.Errorf("reset did not clear outcome: %+v", got)
	}
	if missing, err := repo.Reset(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing job, got %v %v", missing, err)
	}
}

func TestListByStatusOrdered(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		if err := repo.Create(ctx, pendingJob(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Update(ctx, "a", func(j *jobs.Job) error {
		j.Status = jobs.StatusProcessing
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.ListByStatus(ctx, jobs.StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != "c" || pending[1].ID != "b" {
		t.Errorf("unexpected pending order %v", ids(pending))
	}
}

func TestNotStarted(t *testing.T) {
	repo := NewWithProvider(func() *database.DB { return nil })
	if _, err := repo.Get(context.Background(), "a"); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func ids(js []*jobs.Job) []string {
	out := make([]string, len(js))
	for i, j := range js {
		out[i] = j.ID
	}
	return out
}

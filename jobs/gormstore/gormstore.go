// Package gormstore persists jobs in a SQL database through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/yttext/database"
	"github.com/kbukum/yttext/jobs"
)

// ErrNotStarted is returned when the database component has not started yet.
var ErrNotStarted = errors.New("job store: database not started")

// JobRecord is the table row for a job.
type JobRecord struct {
	ID                string `gorm:"primaryKey;size:36"`
	URL               string `gorm:"size:2048;not null"`
	ModelRequested    string `gorm:"size:32"`
	LanguageRequested string `gorm:"size:16"`

	Status   string `gorm:"size:16;not null;index"`
	Phase    string `gorm:"size:16"`
	Progress int

	Text             string `gorm:"type:text"`
	Title            string `gorm:"size:1024"`
	DurationSeconds  float64
	WordCount        int
	ModelUsed        string `gorm:"size:64"`
	DetectedLanguage string `gorm:"size:16"`

	Error     string `gorm:"type:text"`
	ErrorCode string `gorm:"size:32"`

	CreatedAt        time.Time `gorm:"index"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ProcessingTimeMs *int64

	IPAddress string `gorm:"size:64"`
	UserAgent string `gorm:"size:512"`
}

// TableName implements gorm's tabler.
func (JobRecord) TableName() string { return "jobs" }

// Models lists the models to auto-migrate.
func Models() []interface{} {
	return []interface{}{&JobRecord{}}
}

// Provider returns the started database, or nil before start.
type Provider func() *database.DB

// Repository implements jobs.Repository on GORM.
//
// Writes are serialized in process: SQLite allows one writer at a time and
// an update is a read-modify-write of the whole row.
type Repository struct {
	db Provider
	mu sync.Mutex
}

var _ jobs.Repository = (*Repository)(nil)

// New creates a repository on an open database.
func New(db *database.DB) *Repository {
	return &Repository{db: func() *database.DB { return db }}
}

// NewWithProvider creates a repository that resolves the database per call,
// so it can be wired before the database component starts.
func NewWithProvider(p Provider) *Repository {
	return &Repository{db: p}
}

func (r *Repository) conn() (*database.DB, error) {
	db := r.db()
	if db == nil {
		return nil, ErrNotStarted
	}
	return db, nil
}

// Create inserts a new job.
func (r *Repository) Create(ctx context.Context, job *jobs.Job) error {
	if err := job.Check(); err != nil {
		return err
	}
	db, err := r.conn()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := db.WithContext(ctx).Create(fromJob(job)).Error; err != nil {
		return database.FromDatabase(err, "job").WithDetail("job_id", job.ID)
	}
	return nil
}

// Get returns the job, or (nil, nil) when it does not exist.
func (r *Repository) Get(ctx context.Context, id string) (*jobs.Job, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var rec JobRecord
	err = db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, database.FromDatabase(err, "job")
	}
	return rec.toJob(), nil
}

// Update applies fn inside a transaction.
func (r *Repository) Update(ctx context.Context, id string, fn jobs.UpdateFunc) (*jobs.Job, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out *jobs.Job
	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := load(tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("update job %s: %w", id, jobs.ErrNotFound)
		}
		next, err := jobs.ApplyUpdate(current, fn)
		if errors.Is(err, jobs.ErrSkip) {
			out = current
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Save(fromJob(next)).Error; err != nil {
			return fmt.Errorf("save job %s: %w", id, err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset moves a failed job back to pending.
func (r *Repository) Reset(ctx context.Context, id string) (*jobs.Job, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out *jobs.Job
	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := load(tx, id)
		if err != nil || current == nil {
			return err
		}
		next := jobs.ApplyReset(current)
		if next == nil {
			return nil
		}
		if err := tx.Save(fromJob(next)).Error; err != nil {
			return fmt.Errorf("reset job %s: %w", id, err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByStatus returns jobs in status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status jobs.Status) ([]*jobs.Job, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}
	var recs []JobRecord
	if err := db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, database.FromDatabase(err, "job")
	}
	out := make([]*jobs.Job, len(recs))
	for i := range recs {
		out[i] = recs[i].toJob()
	}
	return out, nil
}

func load(tx *gorm.DB, id string) (*jobs.Job, error) {
	var rec JobRecord
	err := tx.Where("id = ?", id).First(&rec).Error
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return rec.toJob(), nil
}

func fromJob(j *jobs.Job) *JobRecord {
	return &JobRecord{
		ID:                j.ID,
		URL:               j.URL,
		ModelRequested:    j.ModelRequested,
		LanguageRequested: j.LanguageRequested,
		Status:            string(j.Status),
		Phase:             string(j.Phase),
		Progress:          j.Progress,
		Text:              j.Text,
		Title:             j.Title,
		DurationSeconds:   j.DurationSeconds,
		WordCount:         j.WordCount,
		ModelUsed:         j.ModelUsed,
		DetectedLanguage:  j.DetectedLanguage,
		Error:             j.Error,
		ErrorCode:         j.ErrorCode,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
		ProcessingTimeMs:  j.ProcessingTimeMs,
		IPAddress:         j.IPAddress,
		UserAgent:         j.UserAgent,
	}
}

func (rec *JobRecord) toJob() *jobs.Job {
	j := &jobs.Job{
		ID:                rec.ID,
		URL:               rec.URL,
		ModelRequested:    rec.ModelRequested,
		LanguageRequested: rec.LanguageRequested,
		Status:            jobs.Status(rec.Status),
		Phase:             jobs.Phase(rec.Phase),
		Progress:          rec.Progress,
		Text:              rec.Text,
		Title:             rec.Title,
		DurationSeconds:   rec.DurationSeconds,
		WordCount:         rec.WordCount,
		ModelUsed:         rec.ModelUsed,
		DetectedLanguage:  rec.DetectedLanguage,
		Error:             rec.Error,
		ErrorCode:         rec.ErrorCode,
		CreatedAt:         rec.CreatedAt,
		StartedAt:         rec.StartedAt,
		CompletedAt:       rec.CompletedAt,
		ProcessingTimeMs:  rec.ProcessingTimeMs,
		IPAddress:         rec.IPAddress,
		UserAgent:         rec.UserAgent,
	}
	return j.Clone()
}

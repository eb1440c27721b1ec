package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/yttext/cache"
	"github.com/kbukum/yttext/download"
	apperrors "github.com/kbukum/yttext/errors"
	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/observability"
	"github.com/kbukum/yttext/transcription"
)

// Defaults for Config.
const (
	DefaultMaxConcurrentJobs    = 3
	DefaultQueueSize            = 100
	DefaultDownloadTimeout      = 300 * time.Second
	DefaultTranscriptionTimeout = 1800 * time.Second
	DefaultPollInterval         = time.Second
	DefaultProgressBuffer       = 64
	DefaultModel                = "base"
)

var errInterrupted = errors.New("job interrupted")

// Config holds orchestrator and worker pool settings.
type Config struct {
	MaxConcurrentJobs    int           `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	QueueSize            int           `yaml:"queue_size" mapstructure:"queue_size"`
	DownloadTimeout      time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	TranscriptionTimeout time.Duration `yaml:"transcription_timeout" mapstructure:"transcription_timeout"`
	PollInterval         time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	ProgressBuffer       int           `yaml:"progress_buffer" mapstructure:"progress_buffer"`
	DefaultModel         string        `yaml:"default_model" mapstructure:"default_model"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = DefaultDownloadTimeout
	}
	if c.TranscriptionTimeout == 0 {
		c.TranscriptionTimeout = DefaultTranscriptionTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ProgressBuffer <= 0 {
		c.ProgressBuffer = DefaultProgressBuffer
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("jobs.max_concurrent_jobs must be at least 1")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("jobs.queue_size must be at least 1")
	}
	if c.DownloadTimeout < 0 || c.TranscriptionTimeout < 0 {
		return fmt.Errorf("jobs timeouts must not be negative")
	}
	return nil
}

// BackendSelector picks the backend for a requested model.
// It returns nil when no available backend supports the model.
type BackendSelector interface {
	ForModel(ctx context.Context, model string) transcription.Backend
}

// Archiver stores finished transcripts outside the job repository.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, jobID, text string) error
}

// CreateRequest is a submission.
type CreateRequest struct {
	URL       string
	Model     string
	Language  string
	IPAddress string
	UserAgent string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache sets the result cache. The default caches nothing.
func WithCache(store cache.Store) Option {
	return func(o *Orchestrator) { o.cache = store }
}

// WithArchiver enables transcript archival after completion.
func WithArchiver(a Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithNotifier receives a snapshot after every job change.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithMetrics records job counters and stage durations.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides uuid job ids.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) { o.newID = gen }
}

// Orchestrator owns the job state machine and drives the transcription pipeline:
// download, backend selection, transcription, cache store, finalize.
type Orchestrator struct {
	cfg        Config
	repo       Repository
	downloader download.Downloader
	backends   BackendSelector
	cache      cache.Store
	archiver   Archiver
	notifier   Notifier
	metrics    *observability.Metrics
	log        *logger.Logger
	now        func() time.Time
	newID      func() string
	pool       *Pool

	// inflight shares one download and transcription between jobs that
	// run the same url and model concurrently.
	inflight singleflight.Group
}

// NewOrchestrator wires an orchestrator and its worker pool.
// The pool must be started (see Pool) before submitted jobs run.
func NewOrchestrator(cfg Config, repo Repository, dl download.Downloader, backends BackendSelector, opts ...Option) *Orchestrator {
	cfg.ApplyDefaults()
	o := &Orchestrator{
		cfg:        cfg,
		repo:       repo,
		downloader: dl,
		backends:   backends,
		cache:      cache.NewNoop(),
		notifier:   nopNotifier{},
		log:        logger.GetGlobalLogger(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	base := o.log
	o.log = base.WithComponent("jobs")

	o.pool = NewPool(PoolConfig{
		MaxConcurrent: cfg.MaxConcurrentJobs,
		QueueSize:     cfg.QueueSize,
	}, o.ProcessJob, o.pendingIDs, base)
	o.pool.beforeStart = o.failInterrupted
	return o
}

// Pool returns the worker pool for lifecycle registration.
func (o *Orchestrator) Pool() *Pool { return o.pool }

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// CreateJob validates the URL and either answers from the cache with a
// completed job or stores a pending job and queues it.
func (o *Orchestrator) CreateJob(ctx context.Context, req CreateRequest) (*Job, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" || !o.downloader.IsSupportedURL(url) {
		return nil, apperrors.Validation(fmt.Sprintf("Unsupported URL: %s", url)).WithDetail("url", url)
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = o.cfg.DefaultModel
	}

	now := o.now()
	job := &Job{
		ID:                o.newID(),
		URL:               url,
		ModelRequested:    model,
		LanguageRequested: req.Language,
		Status:            StatusPending,
		CreatedAt:         now,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
	}
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, job.ID, logger.FieldURL, url, logger.FieldModel, model))

	entry, err := o.cache.Get(ctx, url, model)
	if err != nil {
		log.Warn("Cache lookup failed", logger.ErrorFields("cache_get", err))
		entry = nil
	}
	if entry.Valid() {
		fillFromCache(job, entry, now)
		if err := o.repo.Create(ctx, job); err != nil {
			return nil, apperrors.Internal(err)
		}
		o.metrics.JobCreated(ctx, true)
		o.notify(job)
		log.Info("Job served from cache")
		return job.Clone(), nil
	}

	if err := o.repo.Create(ctx, job); err != nil {
		return nil, apperrors.Internal(err)
	}
	o.metrics.JobCreated(ctx, false)
	o.notify(job)
	o.schedule(job.ID, log)
	log.Info("Job created")
	return job.Clone(), nil
}

func fillFromCache(job *Job, entry *cache.Entry, now time.Time) {
	var zero int64
	job.Status = StatusCompleted
	job.Phase = PhaseComplete
	job.Progress = 100
	job.Text = entry.Text
	job.Title = entry.Title
	job.DurationSeconds = entry.Duration
	job.WordCount = CountWords(entry.Text)
	job.ModelUsed = entry.ModelUsed
	if job.ModelUsed == "" {
		job.ModelUsed = job.ModelRequested
	}
	job.DetectedLanguage = entry.DetectedLanguage
	job.StartedAt = &now
	job.CompletedAt = &now
	job.ProcessingTimeMs = &zero
}

// GetJob returns the job, or (nil, nil) when the id is unknown.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := o.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return job, nil
}

// RetryJob resets a failed job to pending and queues it again.
// It returns (nil, nil) without any change unless the job is failed.
func (o *Orchestrator) RetryJob(ctx context.Context, id string) (*Job, error) {
	job, err := o.repo.Reset(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if job == nil {
		return nil, nil
	}
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, id))
	o.notify(job)
	o.schedule(id, log)
	log.Info("Job retried")
	return job, nil
}

// StreamJobUpdates polls the job every PollInterval and sends each snapshot.
// The channel closes after a terminal snapshot, when the job does not
// exist, or when ctx is done.
func (o *Orchestrator) StreamJobUpdates(ctx context.Context, id string) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		ticker := time.NewTicker(o.cfg.PollInterval)
		defer ticker.Stop()

		for {
			job, err := o.repo.Get(ctx, id)
			if err != nil || job == nil {
				return
			}
			select {
			case out <- *job:
			case <-ctx.Done():
				return
			}
			if job.Status.Terminal() {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ProcessJob runs the pipeline for a pending job and stores the outcome.
// Jobs that are not pending are left untouched.
func (o *Orchestrator) ProcessJob(ctx context.Context, id string) {
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, id))
	start := o.now()

	claimed := false
	job, err := o.repo.Update(ctx, id, func(j *Job) error {
		if j.Status != StatusPending {
			return ErrSkip
		}
		j.Status = StatusProcessing
		j.Phase = PhaseDownloading
		j.Progress = 0
		j.StartedAt = &start
		claimed = true
		return nil
	})
	if err != nil {
		log.Error("Claim job failed", logger.ErrorFields("claim", err))
		return
	}
	if !claimed {
		log.Debug("Job not pending, skipped", logger.Fields(logger.FieldStatus, string(job.Status)))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, job, start, apperrors.Unexpected(fmt.Errorf("panic: %v", r)))
		}
	}()
	o.notify(job)
	log.Info("Job started")

	bridge := newProgressBridge(o.cfg.ProgressBuffer, func(u progressUpdate) {
		o.applyProgress(ctx, id, u)
	})
	out, err := o.runPipeline(ctx, job, bridge)
	bridge.close()

	if err != nil {
		o.fail(ctx, job, start, err)
		return
	}
	o.complete(ctx, job, start, out)
}

type outcome struct {
	audio   *download.Audio
	backend string
	result  *transcription.Result
	cached  bool
}

func (o *Orchestrator) runPipeline(ctx context.Context, job *Job, bridge *progressBridge) (out *outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = apperrors.Unexpected(fmt.Errorf("panic: %v", r))
		}
	}()

	v, err, shared := o.inflight.Do(cache.Key(job.URL, job.ModelRequested), func() (any, error) {
		return o.produce(ctx, job, bridge)
	})
	if shared {
		o.log.Debug("Transcription shared between jobs", logger.Fields(logger.FieldJobID, job.ID))
	}
	if err != nil {
		return nil, err
	}
	return v.(*outcome), nil
}

// produce runs download, backend selection and transcription unless a job
// for the same url and model has cached its result in the meantime.
// A panic is returned as an error so jobs sharing the call all fail cleanly.
func (o *Orchestrator) produce(ctx context.Context, job *Job, bridge *progressBridge) (out *outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = apperrors.Unexpected(fmt.Errorf("panic: %v", r))
		}
	}()

	if hit := o.cachedOutcome(ctx, job); hit != nil {
		return hit, nil
	}

	audio, err := o.download(ctx, job, bridge)
	if err != nil {
		return nil, err
	}
	defer o.cleanup(job.ID, audio)

	backend := o.backends.ForModel(ctx, job.ModelRequested)
	if backend == nil {
		return nil, apperrors.BackendUnavailable().WithDetail("model", job.ModelRequested)
	}

	o.setPhase(ctx, job.ID, PhaseTranscribing)
	result, err := o.transcribe(ctx, job, backend, audio, bridge)
	if err != nil {
		return nil, err
	}
	return &outcome{audio: audio, backend: backend.Name(), result: result}, nil
}

func (o *Orchestrator) cachedOutcome(ctx context.Context, job *Job) *outcome {
	entry, err := o.cache.Get(ctx, job.URL, job.ModelRequested)
	if err != nil || !entry.Valid() {
		return nil
	}
	return &outcome{
		audio:   &download.Audio{Title: entry.Title, DurationSeconds: entry.Duration},
		backend: "cache",
		result: &transcription.Result{
			Text:      entry.Text,
			Language:  entry.DetectedLanguage,
			ModelUsed: entry.ModelUsed,
		},
		cached: true,
	}
}

func (o *Orchestrator) download(ctx context.Context, job *Job, bridge *progressBridge) (*download.Audio, error) {
	stageCtx, cancel := withStageTimeout(ctx, o.cfg.DownloadTimeout)
	defer cancel()
	stageCtx, stage := observability.StartStage(stageCtx, o.metrics, observability.SpanJobDownload,
		attribute.String(observability.AttrJobID, job.ID))

	audio, err := o.downloader.DownloadAudio(stageCtx, job.URL, bridge.reporter(PhaseDownloading))
	switch {
	case err != nil:
		err = classifyStageError(ctx, stageCtx, err, "Download", o.cfg.DownloadTimeout, downloadFailed)
	case audio == nil:
		err = apperrors.Unexpected(errors.New("downloader returned no audio"))
	}
	o.logStage(job.ID, "download", stage.End(ctx, err))
	return audio, err
}

func (o *Orchestrator) transcribe(ctx context.Context, job *Job, backend transcription.Backend, audio *download.Audio, bridge *progressBridge) (*transcription.Result, error) {
	stageCtx, cancel := withStageTimeout(ctx, o.cfg.TranscriptionTimeout)
	defer cancel()
	stageCtx, stage := observability.StartStage(stageCtx, o.metrics, observability.SpanJobTranscribe,
		attribute.String(observability.AttrJobID, job.ID),
		attribute.String(observability.AttrBackend, backend.Name()),
		attribute.String(observability.AttrModel, job.ModelRequested))

	result, err := backend.Transcribe(stageCtx, transcription.Request{
		AudioPath: audio.Path,
		Model:     job.ModelRequested,
		Language:  job.LanguageRequested,
		Progress:  bridge.reporter(PhaseTranscribing),
	})
	switch {
	case err != nil:
		err = classifyStageError(ctx, stageCtx, err, "Transcription", o.cfg.TranscriptionTimeout, func(err error) *apperrors.AppError {
			return transcriptionFailed(backend.Name(), err)
		})
	case result == nil || strings.TrimSpace(result.Text) == "":
		err = apperrors.TranscriptionFailed(backend.Name(), errors.New("empty transcript"))
	}
	o.logStage(job.ID, "transcribe", stage.End(ctx, err))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) complete(ctx context.Context, job *Job, start time.Time, out *outcome) {
	ctx = context.WithoutCancel(ctx)
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, job.ID, logger.FieldBackend, out.backend))

	o.setPhase(ctx, job.ID, PhaseFinalizing)
	fctx, stage := observability.StartStage(ctx, o.metrics, observability.SpanJobFinalize,
		attribute.String(observability.AttrJobID, job.ID))

	text := strings.TrimSpace(out.result.Text)
	modelUsed := out.result.ModelUsed
	if modelUsed == "" {
		modelUsed = job.ModelRequested
	}

	if !out.cached {
		bestEffort(log, "Cache store failed", func() error {
			return o.cache.Set(fctx, job.URL, job.ModelRequested, cache.Result{
				Text:             text,
				Title:            out.audio.Title,
				Duration:         out.audio.DurationSeconds,
				ModelUsed:        modelUsed,
				DetectedLanguage: out.result.Language,
			})
		})
	}
	if o.archiver != nil {
		bestEffort(log, "Transcript archive failed", func() error {
			return o.archiver.ArchiveTranscript(fctx, job.ID, text)
		})
	}

	done := o.now()
	elapsed := done.Sub(start).Milliseconds()
	final, err := o.repo.Update(fctx, job.ID, func(j *Job) error {
		j.Status = StatusCompleted
		j.Phase = PhaseComplete
		j.Progress = 100
		j.Text = text
		j.Title = out.audio.Title
		j.DurationSeconds = out.audio.DurationSeconds
		j.WordCount = CountWords(text)
		j.ModelUsed = modelUsed
		j.DetectedLanguage = out.result.Language
		j.CompletedAt = &done
		j.ProcessingTimeMs = &elapsed
		return nil
	})
	stage.End(fctx, err)
	if err != nil {
		log.Error("Store completed job failed", logger.ErrorFields("complete", err))
		return
	}

	o.metrics.JobCompleted(ctx, out.backend)
	o.notify(final)
	log.Info("Job completed", logger.Fields(
		"word_count", final.WordCount,
		logger.FieldDuration, elapsed,
	))
}

// bestEffort runs a side write whose error or panic is logged and never
// reaches the job.
func bestEffort(log *logger.Logger, msg string, write func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(msg, logger.Fields("panic", fmt.Sprint(r)))
		}
	}()
	if err := write(); err != nil {
		log.Warn(msg, logger.ErrorFields("write", err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *Job, start time.Time, cause error) {
	ctx = context.WithoutCancel(ctx)
	appErr, ok := apperrors.AsAppError(cause)
	if !ok {
		appErr = apperrors.Unexpected(cause)
	}

	done := o.now()
	elapsed := done.Sub(start).Milliseconds()
	final, err := o.repo.Update(ctx, job.ID, func(j *Job) error {
		j.Status = StatusFailed
		j.Text = ""
		j.Error = appErr.Message
		j.ErrorCode = string(appErr.Code)
		j.CompletedAt = &done
		j.ProcessingTimeMs = &elapsed
		return nil
	})
	log := o.log.WithFields(logger.Fields(logger.FieldJobID, job.ID, logger.FieldCode, string(appErr.Code)))
	if err != nil {
		log.Error("Store failed job failed", logger.ErrorFields("fail", err))
		return
	}

	o.metrics.JobFailed(ctx, string(appErr.Code))
	o.notify(final)
	log.Warn("Job failed", logger.Fields(logger.FieldError, appErr.Message))
}

// setPhase moves a processing job to phase with progress reset to 0.
func (o *Orchestrator) setPhase(ctx context.Context, id string, phase Phase) {
	changed := false
	job, err := o.repo.Update(ctx, id, func(j *Job) error {
		if j.Status != StatusProcessing || j.Phase == phase {
			return ErrSkip
		}
		j.Phase = phase
		j.Progress = 0
		changed = true
		return nil
	})
	if err != nil {
		o.log.Warn("Phase update failed", logger.Fields(logger.FieldJobID, id, logger.FieldPhase, string(phase), logger.FieldError, err.Error()))
		return
	}
	if changed {
		o.notify(job)
	}
}

// applyProgress stores u when it belongs to the current phase and moves progress forward.
func (o *Orchestrator) applyProgress(ctx context.Context, id string, u progressUpdate) {
	changed := false
	job, err := o.repo.Update(context.WithoutCancel(ctx), id, func(j *Job) error {
		if j.Status != StatusProcessing || j.Phase != u.phase || u.value <= j.Progress {
			return ErrSkip
		}
		j.Progress = u.value
		changed = true
		return nil
	})
	if err != nil {
		o.log.Debug("Progress update dropped", logger.Fields(logger.FieldJobID, id, logger.FieldError, err.Error()))
		return
	}
	if changed {
		o.notify(job)
	}
}

func (o *Orchestrator) logStage(jobID, name string, elapsed time.Duration) {
	fields := logger.DurationFields(name, elapsed)
	fields[logger.FieldJobID] = jobID
	o.log.Debug("Stage finished", fields)
}

func (o *Orchestrator) cleanup(jobID string, audio *download.Audio) {
	if audio == nil || audio.Path == "" {
		return
	}
	if err := o.downloader.Cleanup(audio.Path); err != nil {
		o.log.Warn("Audio cleanup failed", logger.Fields(logger.FieldJobID, jobID, "path", audio.Path, logger.FieldError, err.Error()))
	}
}

func (o *Orchestrator) schedule(id string, log *logger.Logger) {
	switch err := o.pool.Submit(id); {
	case err == nil:
	case errors.Is(err, ErrQueueFull):
		log.Warn("Job queue full, job stays pending until a slot frees")
	default:
		log.Warn("Job not queued, it stays pending until the pool starts", logger.ErrorFields("submit", err))
	}
}

func (o *Orchestrator) notify(job *Job) {
	if job != nil {
		o.notifier.Notify(*job)
	}
}

func (o *Orchestrator) pendingIDs(ctx context.Context) ([]string, error) {
	pending, err := o.repo.ListByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(pending))
	for i, j := range pending {
		ids[i] = j.ID
	}
	return ids, nil
}

// failInterrupted fails jobs left processing by a previous run.
func (o *Orchestrator) failInterrupted(ctx context.Context) error {
	stale, err := o.repo.ListByStatus(ctx, StatusProcessing)
	if err != nil {
		return err
	}
	for _, j := range stale {
		start := o.now()
		if j.StartedAt != nil {
			start = *j.StartedAt
		}
		o.fail(ctx, j, start, apperrors.Unexpected(errInterrupted))
	}
	if len(stale) > 0 {
		o.log.Warn("Interrupted jobs failed", logger.Fields("count", len(stale)))
	}
	return nil
}

func withStageTimeout(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}

// classifyStageError maps a stage failure onto the error taxonomy.
// Cancellation of the job context means shutdown; expiry of only the
// stage context means the stage timed out.
func classifyStageError(jobCtx, stageCtx context.Context, err error, stage string, limit time.Duration, wrap func(error) *apperrors.AppError) error {
	switch {
	case jobCtx.Err() != nil:
		return apperrors.Unexpected(errInterrupted)
	case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		return apperrors.Timeout(stage, limit)
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		switch appErr.Code {
		case apperrors.ErrCodeTimeout, apperrors.ErrCodeUnexpected, apperrors.ErrCodeBackendUnavailable:
			return appErr
		}
	}
	return wrap(err)
}

// downloadFailed prefixes the downloader message and keeps policy codes.
func downloadFailed(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		out := *appErr
		out.Message = "Download failed: " + appErr.Message
		out.Cause = err
		return &out
	}
	return apperrors.Download("Download failed: "+err.Error(), err)
}

// transcriptionFailed keeps the backend message verbatim.
func transcriptionFailed(backend string, err error) *apperrors.AppError {
	out := apperrors.TranscriptionFailed(backend, err)
	if appErr, ok := apperrors.AsAppError(err); ok {
		out.Message = "Transcription failed: " + appErr.Message
	}
	return out
}

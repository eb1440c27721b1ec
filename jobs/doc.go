// Package jobs runs transcription jobs from submission to a terminal state.
//
// The Orchestrator owns the job state machine. CreateJob answers from the
// result cache when it can and otherwise persists a pending job and hands its
// id to the Pool. A pool worker runs the pipeline:
//
//	download -> backend select -> transcribe -> cache store -> finalize
//
// Every stage failure moves the job to failed with a coded error and stops
// the pipeline. Progress is reported per phase through a bounded channel
// drained by a single consumer, so slow persistence never blocks a
// downloader or backend.
//
// Jobs are stored through a Repository. MemoryRepository serves tests and
// the one-shot CLI; jobs/gormstore persists them with GORM.
package jobs

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kbukum/yttext/logger"
)

// Source resolves the active backend. It may return nil when archival is off.
type Source func() Storage

// TranscriptArchive writes finished transcripts as <prefix>/<job_id>.txt.
type TranscriptArchive struct {
	source Source
	prefix string
	log    *logger.Logger
}

// NewTranscriptArchive creates an archive over the backend returned by source.
func NewTranscriptArchive(source Source, prefix string, log *logger.Logger) *TranscriptArchive {
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TranscriptArchive{source: source, prefix: prefix, log: log.WithComponent("storage")}
}

// Path returns the object path for a job's transcript.
func (a *TranscriptArchive) Path(jobID string) string {
	return path.Join(a.prefix, jobID+".txt")
}

// ArchiveTranscript uploads text for jobID. It is a no-op without a backend.
func (a *TranscriptArchive) ArchiveTranscript(ctx context.Context, jobID, text string) error {
	s := a.source()
	if s == nil {
		return nil
	}
	p := a.Path(jobID)
	if err := s.Upload(ctx, p, strings.NewReader(text)); err != nil {
		return fmt.Errorf("archive transcript %s: %w", jobID, err)
	}
	a.log.Debug("Transcript archived", logger.Fields(logger.FieldJobID, jobID, "path", p, "bytes", len(text)))
	return nil
}

// Transcript reads back an archived transcript.
func (a *TranscriptArchive) Transcript(ctx context.Context, jobID string) (string, error) {
	s := a.source()
	if s == nil {
		return "", fmt.Errorf("%w: archive disabled", ErrNotFound)
	}
	rc, err := s.Download(ctx, a.Path(jobID))
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read transcript %s: %w", jobID, err)
	}
	return string(b), nil
}

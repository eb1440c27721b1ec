package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/yttext/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	return s
}

func TestUploadDownload(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.Upload(ctx, "transcripts/a.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := s.Download(ctx, "transcripts/a.txt")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" {
		t.Errorf("got %q", b)
	}

	if _, err := s.Download(ctx, "transcripts/none.txt"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPathsStayBelowBase(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.Upload(ctx, "../../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.BasePath(), "escape.txt")); err != nil {
		t.Errorf("expected file clamped under base path: %v", err)
	}
	if err := s.Upload(ctx, "/", strings.NewReader("x")); err == nil {
		t.Error("Expected error for root path")
	}
}

func TestExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	ok, err := s.Exists(ctx, "a.txt")
	if err != nil || ok {
		t.Fatalf("Exists before upload = %v, %v", ok, err)
	}
	_ = s.Upload(ctx, "a.txt", strings.NewReader("x"))
	if ok, _ := s.Exists(ctx, "a.txt"); !ok {
		t.Error("Expected file to exist")
	}
	if err := s.Delete(ctx, "a.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a.txt"); err != nil {
		t.Errorf("deleting a missing file should succeed, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	for _, p := range []string{"transcripts/b.txt", "transcripts/a.txt", "other/c.txt"} {
		if err := s.Upload(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatalf("Upload %s: %v", p, err)
		}
	}

	files, err := s.List(ctx, "transcripts/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 || files[0].Path != "transcripts/a.txt" || files[1].Path != "transcripts/b.txt" {
		t.Fatalf("unexpected listing %+v", files)
	}
	if !strings.HasPrefix(files[0].ContentType, "text/plain") {
		t.Errorf("content type = %q", files[0].ContentType)
	}
	if files[0].Size != int64(len("transcripts/a.txt")) {
		t.Errorf("size = %d", files[0].Size)
	}
}

func TestUploadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := newTestStorage(t).Upload(ctx, "a.txt", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

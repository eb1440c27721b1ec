package download

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kbukum/yttext/errors"
)

// Downloader fetches audio for a URL.
type Downloader interface {
	// IsSupportedURL reports whether url may be submitted at all.
	IsSupportedURL(rawURL string) bool
	// DownloadAudio probes the media, enforces the policy, then extracts
	// mono 16kHz audio. progress receives 0-100 and may be nil.
	DownloadAudio(ctx context.Context, rawURL string, progress func(int)) (*Audio, error)
	// Cleanup removes a downloaded file and its per-job directory.
	Cleanup(path string) error
}

// Audio is a downloaded audio file with its media metadata.
type Audio struct {
	Path            string  `json:"path"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
}

// Info is media metadata gathered before downloading.
type Info struct {
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration"`
	// FileSize is the exact or approximate source size in bytes, 0 when unknown.
	FileSize    int64  `json:"filesize"`
	Extractor   string `json:"extractor,omitempty"`
	Uploader    string `json:"uploader,omitempty"`
	UploadDate  string `json:"upload_date,omitempty"`
	WebpageURL  string `json:"webpage_url,omitempty"`
	Description string `json:"description,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`
}

// Policy bounds what may be downloaded.
type Policy struct {
	// MaxDurationSeconds rejects longer media. Zero disables the check.
	MaxDurationSeconds int64 `yaml:"max_video_duration" mapstructure:"max_video_duration"`
	// MaxFileSize rejects larger sources in bytes. Zero disables the check.
	MaxFileSize int64 `yaml:"max_file_size" mapstructure:"max_file_size"`
	// Allowlist, when non-empty, requires the host to contain one entry.
	Allowlist []string `yaml:"url_allowlist" mapstructure:"url_allowlist"`
	// Blocklist rejects hosts containing any entry.
	Blocklist []string `yaml:"url_blocklist" mapstructure:"url_blocklist"`
}

// AllowsURL checks scheme, host and the host lists. Entries match by substring.
func (p Policy) AllowsURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, blocked := range p.Blocklist {
		if blocked != "" && strings.Contains(host, strings.ToLower(blocked)) {
			return false
		}
	}
	if len(p.Allowlist) == 0 {
		return true
	}
	for _, allowed := range p.Allowlist {
		if allowed != "" && strings.Contains(host, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// Check returns a policy error when known metadata exceeds the limits.
// Unknown (zero) values pass.
func (p Policy) Check(info *Info) error {
	if info == nil {
		return nil
	}
	if p.MaxFileSize > 0 && info.FileSize > p.MaxFileSize {
		return errors.Policy(fmt.Sprintf("File too large: %d bytes", info.FileSize)).
			WithDetail("max_file_size", p.MaxFileSize)
	}
	if p.MaxDurationSeconds > 0 && info.DurationSeconds > float64(p.MaxDurationSeconds) {
		return errors.Policy(fmt.Sprintf("Video too long: %d seconds", int64(info.DurationSeconds))).
			WithDetail("max_video_duration", p.MaxDurationSeconds)
	}
	return nil
}

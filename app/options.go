package app

import (
	"github.com/kbukum/yttext/bootstrap"
	"github.com/kbukum/yttext/download"
	"github.com/kbukum/yttext/transcription"
)

// Option configures New.
type Option func(*options)

type options struct {
	boot       []bootstrap.Option
	serve      bool
	downloader download.Downloader
	backends   *transcription.Registry
}

// WithBootstrapOptions passes options through to bootstrap.NewApp.
func WithBootstrapOptions(opts ...bootstrap.Option) Option {
	return func(o *options) { o.boot = append(o.boot, opts...) }
}

// WithoutServer skips the HTTP server, for one-shot CLI runs.
func WithoutServer() Option {
	return func(o *options) { o.serve = false }
}

// WithDownloader replaces the yt-dlp downloader.
func WithDownloader(d download.Downloader) Option {
	return func(o *options) { o.downloader = d }
}

// WithBackends replaces the registry built from the transcription config.
func WithBackends(r *transcription.Registry) Option {
	return func(o *options) { o.backends = r }
}

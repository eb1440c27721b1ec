// Package transcription defines the speech-to-text backend contract and the
// registry that picks a backend for a job.
//
// Backends are constructed from configuration through the Factories table.
// Each adapter package registers itself in init, so importing an adapter is
// what makes its name resolvable:
//
//	import (
//	    _ "github.com/kbukum/yttext/transcription/whispercpp"
//	    _ "github.com/kbukum/yttext/transcription/openai"
//	)
//
//	reg, err := transcription.Build(ctx, cfg)
//	backend := reg.ForModel(ctx, "base")
//	result, err := backend.Transcribe(ctx, transcription.Request{AudioPath: path, Model: "base"})
//
// # Backends
//
//   - transcription/whispercpp: whisper.cpp CLI (priority 10)
//   - transcription/mlx: mlx_whisper on Apple silicon (priority 5)
//   - transcription/openai: OpenAI audio transcription API (priority 50)
//   - transcription/whisper: faster-whisper HTTP sidecar (priority 100)
package transcription

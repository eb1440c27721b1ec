// Package process runs external tools (yt-dlp, ffmpeg, whisper.cpp,
// mlx_whisper) as subprocesses with process-group cancellation and
// line-by-line output callbacks for progress parsing.
package process

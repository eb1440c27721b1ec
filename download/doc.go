// Package download fetches audio for a media URL under a size and
// duration policy.
//
// The Downloader interface is what the job pipeline consumes; the ytdlp
// subpackage implements it with the yt-dlp CLI.
package download

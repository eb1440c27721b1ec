// Package storage archives finished transcripts in object storage.
//
// Backends register themselves through RegisterFactory; import the ones you
// need for their side effect:
//
//	import _ "github.com/kbukum/yttext/storage/local"
//	import _ "github.com/kbukum/yttext/storage/s3"
//
// # Configuration
//
//	storage:
//	  enabled: true
//	  provider: "s3"
//	  prefix: "transcripts"
//	  bucket: "yttext-archive"
//	  region: "us-east-1"
//
// Component owns the backend lifecycle. TranscriptArchive writes
// <prefix>/<job_id>.txt through whatever backend the component started,
// and does nothing while archival is disabled.
package storage

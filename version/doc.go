// Package version reports the build the service is running.
//
// Version, commit and build date are set at compile time:
//
//	go build -ldflags "-X github.com/kbukum/yttext/version.Version=1.2.0 \
//	  -X github.com/kbukum/yttext/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/kbukum/yttext/version.BuildDate=$(date -u +%FT%TZ)"
package version

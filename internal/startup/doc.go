// Package startup holds build information and the console reporting used
// when a command starts and finishes.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version, also stored in every cache's metadata row
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// For example:
//
//	go build -ldflags "-X datalint/internal/startup.Version=1.4.0 -X datalint/internal/startup.Commit=$(git rev-parse --short HEAD)"
//
// # Lifecycle Logging
//
//   - [LogStartup]: banner and system information
//   - [LogSettings]: effective configuration
//   - [LogStoreInit]: cache store backend and open time
//   - [LogVipsInit]: libvips fallback availability
//   - [LogScanComplete]: counts and duration of a cache build
//
// [EnsureDirectory] creates and checks the directory a cache file lives in.
package startup

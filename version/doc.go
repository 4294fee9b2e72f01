// Package version reports the build of an rxkit binary. The values are
// set at link time:
//
//	go build -ldflags "-X github.com/kbukum/rxkit/version.Version=1.2.0" ./cmd/rxreplay
//
// Missing values fall back to the VCS stamp embedded by the Go toolchain.
package version

// Package version exposes build information for the version command, the
// /info endpoint and the outbound User-Agent.
//
// Values are set at compile time via -ldflags and fall back to the VCS
// stamps embedded by the Go toolchain:
//
//	go build -ldflags "-X github.com/kbukum/artcache/version.Version=1.0.0"
package version

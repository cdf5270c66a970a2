// Package buildinfo provides build information for instance-state.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/evant/instance-state/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo

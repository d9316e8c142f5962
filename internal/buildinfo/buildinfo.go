// Package buildinfo holds the version string stamped into release
// builds via -ldflags; left at its default for development builds.
package buildinfo

// Version is overwritten at release build time with
// -ldflags "-X github.com/uccd-project/uccd/internal/buildinfo.Version=...".
var Version = "dev"

// Package version carries the build version, overridden at release time
// with -ldflags "-X github.com/logiqbot/keypool/internal/version.Version=...".
package version

var Version = "dev"

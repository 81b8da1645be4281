// Package buildinfo holds build metadata set with -ldflags, e.g.
//
//	-X github.com/garyellow/campus-interview-bot/internal/buildinfo.Version=v1.2.0
package buildinfo

// Version is the release tag. Empty in development builds.
var Version = ""

// Commit is the git commit SHA.
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
var BuildDate = ""

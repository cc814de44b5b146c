//go:build !sqlite_cgo
// +build !sqlite_cgo

package store

// This file is compiled for the default pure Go build. It uses the
// modernc.org translation of SQLite, so no C compiler is required and
// cross-compilation works everywhere.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

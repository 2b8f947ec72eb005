/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package testutil holds fixtures shared by permute's package tests.
package testutil

import (
	"bytes"
	"io"
	"os"
	"testing"

	"bennypowers.dev/permute/internal/logger"
	"bennypowers.dev/permute/internal/mapfs"
)

// NewMapFS returns an in-memory filesystem seeded with files, keyed by
// absolute path. Read counts start at zero.
func NewMapFS(t *testing.T, files map[string]string) *mapfs.MapFileSystem {
	t.Helper()
	mfs := mapfs.New()
	for p, content := range files {
		mfs.AddFile(p, content)
	}
	return mfs
}

// Quiet discards log output until the test ends.
func Quiet(t *testing.T) {
	t.Helper()
	redirect(t, io.Discard)
}

// CaptureLogs collects log output until the test ends. The logger serializes
// writes, so the buffer may be read once the code under test has returned.
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	redirect(t, &buf)
	return &buf
}

func redirect(t *testing.T, w io.Writer) {
	logger.SetOutput(w)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
}

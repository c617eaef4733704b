// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

const directoryPerms = 0755

// CopyFile copies a file to a target file path, creating parent directories as needed. The copy is written to a
// temporary file next to the target and renamed into place once complete.
func CopyFile(to, src string) error {
	hclog.L().Debug("copying", "path", src, "to", to)

	// Ensure directories
	err := os.MkdirAll(filepath.Dir(to), directoryPerms)
	if err != nil {
		return err
	}

	// Open source file
	r, err := os.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	// Create destination file
	w, err := os.CreateTemp(filepath.Dir(to), ".copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(w.Name())

	// Write source contents to destination
	if _, err = io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return os.Rename(w.Name(), to)
}

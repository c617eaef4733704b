// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mholt/archiver"
)

// FindFiles walks root and returns every regular file whose extension matches ext, ignoring case. Results are
// sorted so runs process files in a stable order.
func FindFiles(root, ext string) ([]string, error) {
	var matches []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	return matches, nil
}

// RelPath returns path relative to root, using forward slashes on every platform.
func RelPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindDirUpward looks for a directory called name in start and up to levels-1 of its ancestors.
func FindDirUpward(start, name string, levels int) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for i := 0; i < levels; i++ {
		candidate := filepath.Join(current, name)
		if IsDir(candidate) {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return "", fmt.Errorf("could not locate '%s' folder within %d levels of %s", name, levels, start)
}

// Bundle archives sourceDir into a compressed tarball at destFileName, replacing any previous bundle.
func Bundle(sourceDir string, destFileName string) error {
	tgz := archiver.NewTarGz()
	tgz.OverwriteExisting = true
	tgz.MkdirAll = true

	if err := tgz.Archive([]string{sourceDir}, destFileName); err != nil {
		hclog.L().Error("Bundle", "error creating tarball", err)
		return err
	}
	return nil
}

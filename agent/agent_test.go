// Copyright IBM Corp. 2021, 2025
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp/nifredact/audit"
	"github.com/hashicorp/nifredact/op"
	"github.com/hashicorp/nifredact/pdf"
	"github.com/hashicorp/nifredact/pdf/pdftest"
	"github.com/hashicorp/nifredact/redact"
	"github.com/hashicorp/nifredact/verify"
)

type fakeReporter struct {
	op.NopReporter
	processed map[string]int
	failed    []string
	skipped   []string
	finished  int
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{processed: make(map[string]int)}
}

func (r *fakeReporter) Processed(path string, n int) { r.processed[path] = n }
func (r *fakeReporter) Failed(path string, _ error)  { r.failed = append(r.failed, path) }
func (r *fakeReporter) Skipped(path string)          { r.skipped = append(r.skipped, path) }
func (r *fakeReporter) Finished(*Agent)              { r.finished++ }

// writeTree lays out an input root with nested documents, returning its path.
func writeTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "doc")
	pdftest.Write(t, filepath.Join(root, "top.pdf"), pdftest.Page{"Titular 00000001R", "Otro 12345678A"})
	pdftest.Write(t, filepath.Join(root, "a", "b", "deep.PDF"), pdftest.Page{"X1234567L"}, pdftest.Page{"Y0000000Z"})
	pdftest.Write(t, filepath.Join(root, "a", "clean.pdf"), pdftest.Page{"sin datos"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "notes.txt"), []byte("00000001R"), 0644))
	return root
}

func newTestAgent(t *testing.T, cfg Config, r Reporter) *Agent {
	t.Helper()
	a, err := NewAgent(cfg, r, hclog.NewNullLogger())
	require.NoError(t, err)
	return a
}

func TestNewAgent(t *testing.T) {
	_, err := NewAgent(Config{}, nil, hclog.NewNullLogger())
	assert.Error(t, err)

	a := newTestAgent(t, Config{InputDir: "/srv/expedientes/doc", Extension: "PDF"}, nil)
	assert.Equal(t, filepath.FromSlash("/srv/expedientes/redacted_output"), a.Config.OutputDir)
	assert.Equal(t, ".PDF", a.Config.Extension)
	assert.Equal(t, audit.DefaultFileName, a.Config.LogFile)
	assert.NotNil(t, a.Config.Extractor)
	assert.NotNil(t, a.Config.Validator)
}

func TestStartAndEnd(t *testing.T) {
	a := newTestAgent(t, Config{InputDir: t.TempDir()}, nil)

	// Start and End fields should be zero at first, and Duration should be empty
	assert.True(t, a.Start.IsZero())
	assert.True(t, a.End.IsZero())
	assert.Empty(t, a.Duration)

	// recordEnd should set a time and calculate a duration
	a.recordEnd()
	assert.False(t, a.End.IsZero())
	assert.NotEmpty(t, a.Duration)
}

func TestRun(t *testing.T) {
	root := writeTree(t)
	out := filepath.Join(filepath.Dir(root), "redacted_output")
	rep := newFakeReporter()

	a := newTestAgent(t, Config{InputDir: root}, rep)
	require.NoError(t, a.Run())

	// The output tree mirrors the input tree.
	for _, rel := range []string{"top.pdf", "a/b/deep.PDF", "a/clean.pdf"} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(out, "a", "notes.txt"))

	assert.Equal(t, map[string]int{"top.pdf": 1, "a/b/deep.PDF": 2, "a/clean.pdf": 0}, rep.processed)
	assert.Equal(t, 1, rep.finished)
	assert.Equal(t, 3, a.NumFiles)
	assert.Zero(t, a.NumErrors)
	assert.Equal(t, 3, a.TotalRedacted)

	runs, err := audit.ReadAll(a.LogPath())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, root, runs[0].InputDir)
	assert.Equal(t, out, runs[0].OutputDir)
	assert.Equal(t, map[string]audit.Record{
		"top.pdf": {
			Pages:         map[int]map[string]int{1: {"00000001R": 1}},
			TotalRedacted: 1,
		},
		"a/b/deep.PDF": {
			Pages:         map[int]map[string]int{1: {"X1234567L": 1}, 2: {"Y0000000Z": 1}},
			TotalRedacted: 2,
		},
		"a/clean.pdf": {},
	}, runs[0].Files)

	res, err := verify.New(hclog.NewNullLogger(), nil, nil).Dir(out, DefaultExtension)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Empty(t, res.Residuals)
}

func TestRun_PartialFailure(t *testing.T) {
	root := writeTree(t)
	pdftest.WriteCorrupt(t, filepath.Join(root, "a", "broken.pdf"))
	pdftest.WriteEncrypted(t, filepath.Join(root, "locked.pdf"), "secret", pdftest.Page{"00000001R"})
	rep := newFakeReporter()

	a := newTestAgent(t, Config{InputDir: root}, rep)
	err := a.Run()
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.True(t, errors.Is(err, pdf.ErrEncrypted))

	sort.Strings(rep.failed)
	assert.Equal(t, []string{"a/broken.pdf", "locked.pdf"}, rep.failed)
	assert.Len(t, rep.processed, 3)
	assert.Equal(t, 2, a.NumErrors)

	assert.NoFileExists(t, filepath.Join(a.Config.OutputDir, "a", "broken.pdf"))
	assert.NoFileExists(t, filepath.Join(a.Config.OutputDir, "locked.pdf"))
	assert.FileExists(t, filepath.Join(a.Config.OutputDir, "top.pdf"))

	runs, err := audit.ReadAll(a.LogPath())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Files["a/broken.pdf"].Failed())
	assert.True(t, runs[0].Files["locked.pdf"].Failed())
	assert.False(t, runs[0].Files["top.pdf"].Failed())
	assert.Len(t, runs[0].Files, 5)
}

func TestRun_AppendsOneLinePerRun(t *testing.T) {
	root := writeTree(t)
	const runs = 3

	for i := 0; i < runs; i++ {
		a := newTestAgent(t, Config{InputDir: root, LogFile: "audit.jsonl"}, nil)
		require.NoError(t, a.Run())
	}

	all, err := audit.ReadAll(filepath.Join(DefaultOutputDir(root), "audit.jsonl"))
	require.NoError(t, err)
	require.Len(t, all, runs)
	for _, run := range all {
		assert.Equal(t, 3, run.Files["a/b/deep.PDF"].TotalRedacted+run.Files["top.pdf"].TotalRedacted)
	}
	assert.False(t, all[0].Timestamp.After(all[runs-1].Timestamp))
}

func TestRun_RootErrors(t *testing.T) {
	dir := t.TempDir()

	a := newTestAgent(t, Config{InputDir: filepath.Join(dir, "missing")}, nil)
	assert.ErrorIs(t, a.Run(), ErrRootNotFound)

	file := filepath.Join(dir, "file.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	a = newTestAgent(t, Config{InputDir: file}, nil)
	assert.ErrorIs(t, a.Run(), ErrRootNotFound)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(filepath.Join(empty, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(empty, "sub", "a.txt"), []byte("x"), 0644))
	a = newTestAgent(t, Config{InputDir: empty}, nil)
	assert.ErrorIs(t, a.Run(), ErrNoFilesFound)

	// Nothing is written when the run is aborted.
	assert.NoDirExists(t, a.Config.OutputDir)
}

func TestRun_Dryrun(t *testing.T) {
	root := writeTree(t)
	rep := newFakeReporter()

	a := newTestAgent(t, Config{InputDir: root, Dryrun: true}, rep)
	require.NoError(t, a.Run())

	assert.Equal(t, []string{"a/b/deep.PDF", "a/clean.pdf", "top.pdf"}, rep.skipped)
	assert.Len(t, a.ManifestOps, 3)
	for _, m := range a.ManifestOps {
		assert.Equal(t, op.Skip, m.Status)
	}
	assert.NoDirExists(t, a.Config.OutputDir)
	assert.Zero(t, rep.finished)
}

func TestRun_Filters(t *testing.T) {
	root := writeTree(t)

	a := newTestAgent(t, Config{InputDir: root, Selects: []string{"a/*", "a/*/*"}, Excludes: []string{"*/clean.pdf"}}, nil)
	require.NoError(t, a.Run())
	assert.Equal(t, 1, a.NumFiles)
	assert.Contains(t, a.Records(), "a/b/deep.PDF")

	a = newTestAgent(t, Config{InputDir: root, Selects: []string{"["}}, nil)
	assert.Error(t, a.Run())
}

func TestRun_OutputInsideInput(t *testing.T) {
	root := writeTree(t)
	out := filepath.Join(root, "sanitized")

	for i := 0; i < 2; i++ {
		a := newTestAgent(t, Config{InputDir: root, OutputDir: out}, nil)
		require.NoError(t, a.Run())
		assert.Equal(t, 3, a.NumFiles, "outputs of the previous run are not picked up")
	}
}

func TestRun_RulesAndBundle(t *testing.T) {
	root := writeTree(t)
	bundle := filepath.Join(t.TempDir(), "bundles", "out.tar.gz")
	rule, err := redact.New(`12345678A`, "pinned")
	require.NoError(t, err)

	a := newTestAgent(t, Config{InputDir: root, Bundle: bundle, Redactions: []*redact.Redact{rule}}, nil)
	require.NoError(t, a.Run())

	assert.Equal(t, map[int]map[string]int{1: {"00000001R": 1, "12345678A": 1}}, a.Records()["top.pdf"].Pages)
	assert.FileExists(t, bundle)
}

func Test_within(t *testing.T) {
	tcs := []struct {
		dir, path string
		expect    bool
	}{
		{dir: "/a/out", path: "/a/out/x.pdf", expect: true},
		{dir: "/a/out", path: "/a/out/b/x.pdf", expect: true},
		{dir: "/a/out", path: "/a/output/x.pdf", expect: false},
		{dir: "/a/out", path: "/a/x.pdf", expect: false},
		{dir: "/a/out", path: "/a/..out/x.pdf", expect: false},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.expect, within(filepath.FromSlash(tc.dir), filepath.FromSlash(tc.path)), tc.path)
	}
}

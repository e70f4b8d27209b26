package analyze_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruntwork-io/flaky-report/cli/commands/analyze"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/pkg/log"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func runReport(day int, status string) string {
	exception := "null"
	if status == "failed" {
		exception = `{"class": "RuntimeError", "message": "expected: 50, got: 73", "backtrace": null}`
	}

	ts := fmt.Sprintf("2024-05-%02dT10:00:00Z", day)

	return fmt.Sprintf(`{
		"total_examples": 1,
		"run_start_time": %q,
		"run_end_time": %q,
		"duration": 2,
		"examples": [{
			"description": "generates a number",
			"full_description": "Calculator generates a number",
			"file_path": "./spec/calculator_spec.rb",
			"line_number": 25,
			"status": %q,
			"run_time": 0.2,
			"timestamp": %q,
			"exception": %s
		}]
	}`, ts, ts, status, ts, exception)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func inputDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "1_rspec-results_flaky-rspec.json"), runReport(1, "failed"))
	writeFile(t, filepath.Join(dir, "run-2", "flaky-rspec.json"), runReport(2, "passed"))
	writeFile(t, filepath.Join(dir, "run-3", "nested", "flaky-rspec.json"), runReport(3, "failed"))
	writeFile(t, filepath.Join(dir, "run-4", "flaky-rspec.json"), `{"total_examples": "many"}`)
	writeFile(t, filepath.Join(dir, "manifest.json"), `{"repository": "acme/widgets"}`)
	writeFile(t, filepath.Join(dir, "run-2", "notes.txt"), "not a report")

	return dir
}

func testOptions(stdout *bytes.Buffer, dir string) *options.Options {
	opts := options.NewOptionsWithWriters(stdout, &bytes.Buffer{})
	opts.Logger = log.New(log.WithOutput(&bytes.Buffer{}))
	opts.InputDir = dir

	return opts
}

func TestReadDocuments(t *testing.T) {
	t.Parallel()

	docs, err := analyze.ReadDocuments(inputDir(t))
	require.NoError(t, err)

	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, doc.Source)
	}

	assert.Equal(t, []string{
		"1_rspec-results_flaky-rspec.json",
		"run-2/flaky-rspec.json",
		"run-3/nested/flaky-rspec.json",
		"run-4/flaky-rspec.json",
	}, sources)
}

func TestReadDocumentsMissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := analyze.ReadDocuments(filepath.Join(t.TempDir(), "missing"))

	var configErr *options.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "input-dir", configErr.Setting)
}

func TestRunMarkdown(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout, inputDir(t))

	require.NoError(t, analyze.Run(t.Context(), opts, now))

	out := stdout.String()
	assert.Contains(t, out, "Number of runs processed: 3")
	assert.Contains(t, out, "First run date: 2024-05-01 10:00:00 UTC")
	assert.Contains(t, out, "| `./spec/calculator_spec.rb:25` | Calculator generates a number | 2/3 | 66.67 |")
	assert.Contains(t, out, "- Last failure: 2024-05-03 10:00:00 UTC")
	assert.Contains(t, out, "  - expected: 50, got: 73")
}

func TestRunSummaryWithoutToken(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout, inputDir(t))
	opts.Format = "summary"
	opts.Token = ""

	require.NoError(t, analyze.Run(t.Context(), opts, now))

	out := stdout.String()
	assert.Contains(t, out, "FLAKY SPECS SUMMARY")
	assert.Contains(t, out, "Total test runs analyzed: 3")
	assert.Contains(t, out, "Malformed reports skipped: 1")
	assert.Contains(t, out, "Failure Rate: 66.67% (2/3 runs failed)")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := testOptions(&stdout, inputDir(t))
	opts.Format = "xml"

	err := analyze.Run(t.Context(), opts, now)

	var configErr *options.ConfigurationError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "format", configErr.Setting)
	assert.Empty(t, stdout.String())
}

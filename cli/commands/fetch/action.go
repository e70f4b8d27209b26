package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gruntwork-io/flaky-report/cli/commands/common"
	"github.com/gruntwork-io/flaky-report/internal/collector"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/internal/util"
	"github.com/gruntwork-io/flaky-report/options"
	"github.com/gruntwork-io/flaky-report/types"
)

// ManifestFile is the name of the file describing the downloaded documents.
const ManifestFile = "manifest.json"

const dirPerm = 0o755

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	" ", "_",
)

// Run validates the options, connects to GitHub and downloads the run reports.
func Run(ctx context.Context, opts *options.Options) error {
	if err := opts.ValidateRemote(); err != nil {
		return err
	}

	client, err := common.NewClient(opts)
	if err != nil {
		return err
	}

	return RunWithSource(ctx, opts, client, time.Now().UTC())
}

// RunWithSource collects the run reports from source and writes them, along with the manifest, to opts.OutputDir.
func RunWithSource(ctx context.Context, opts *options.Options, source collector.Source, now time.Time) error {
	if err := opts.ValidateRemote(); err != nil {
		return err
	}

	if opts.OutputDir == "" {
		return &options.ConfigurationError{Setting: "output-dir", Reason: "must not be empty"}
	}

	ctx, cancel := common.WithTimeout(ctx, opts)
	defer cancel()

	coll, err := common.NewCollector(opts, source)
	if err != nil {
		return err
	}

	result, err := coll.Collect(ctx)
	if err != nil {
		return err
	}

	common.WarnSkipped(opts, result)

	if err := os.MkdirAll(opts.OutputDir, dirPerm); err != nil {
		return errors.Errorf("failed to create directory %s: %w", opts.OutputDir, err)
	}

	files := make([]string, 0, len(result.Documents))
	used := make(map[string]bool, len(result.Documents))

	for _, doc := range result.Documents {
		name := uniqueFilename(used, DocumentFilename(doc))

		if err := util.WriteFileAtomic(filepath.Join(opts.OutputDir, name), func(w io.Writer) error {
			_, err := w.Write(doc.Body)
			return err
		}); err != nil {
			return errors.Errorf("failed to write %s: %w", doc.Source, err)
		}

		opts.Logger.Debugf("Saved %s as %s", doc.Source, name)

		files = append(files, name)
	}

	manifest := types.FetchManifest{
		LastUpdated: now,
		Repository:  opts.Repository,
		Branch:      opts.Branch,
		Workflow:    opts.Workflow,
		Runs:        result.Runs,
		Artifacts:   result.Artifacts,
		Files:       files,
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)

	if err := util.WriteFileAtomic(manifestPath, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(manifest)
	}); err != nil {
		return errors.Errorf("failed to write manifest: %w", err)
	}

	opts.Logger.Infof("Fetched %d documents from %d runs into %s", len(files), len(result.Runs), opts.OutputDir)

	return nil
}

// DocumentFilename returns the local file name of a fetched document: `<run-id>_<artifact>_<entry>`, with path
// separators replaced so that every document lands directly in the output directory.
func DocumentFilename(doc types.Document) string {
	entry := strings.TrimSuffix(doc.Entry, filepath.Ext(doc.Entry))
	if entry == "" {
		entry = strings.TrimSuffix(filepath.Base(doc.Source), filepath.Ext(doc.Source))
	}

	return filenameReplacer.Replace(fmt.Sprintf("%d_%s_%s", doc.RunID, doc.Artifact, entry)) + ".json"
}

// uniqueFilename returns name, or name with a `_<n>` suffix before the extension when an earlier document already
// took it, and records the result in used. Names are compared case-insensitively so that documents do not overwrite
// each other on case-insensitive file systems.
func uniqueFilename(used map[string]bool, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name

	for n := 2; used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	used[strings.ToLower(candidate)] = true

	return candidate
}

package github

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/go-github/v53/github"
	"github.com/gruntwork-io/flaky-report/internal/errors"
	"github.com/gruntwork-io/flaky-report/pkg/log"
	"github.com/gruntwork-io/flaky-report/types"
	"github.com/hashicorp/go-getter/v2"
	"github.com/hashicorp/go-safetemp"
)

const (
	jsonExt = ".json"

	tempDirPerm = 0o700

	// maxEntrySize caps how much of a single archive entry is read into memory.
	maxEntrySize = 256 << 20
)

// ArtifactFilter selects the artifacts that carry run-reports.
type ArtifactFilter struct {
	glob    glob.Glob
	pattern string
}

// NewArtifactFilter compiles a glob such as `rspec-results*`. A pattern without glob metacharacters is treated
// as a name prefix.
func NewArtifactFilter(pattern string) (*ArtifactFilter, error) {
	if pattern == "" {
		return nil, errors.Errorf("artifact filter cannot be empty")
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		pattern += "*"
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("invalid artifact filter %q: %w", pattern, err)
	}

	return &ArtifactFilter{glob: g, pattern: pattern}, nil
}

// Match reports whether the artifact name matches the filter.
func (f *ArtifactFilter) Match(name string) bool {
	return f.glob.Match(name)
}

func (f *ArtifactFilter) String() string {
	return f.pattern
}

type artifactsPage struct {
	artifacts []*github.Artifact
	nextPage  int
}

// ListArtifacts returns every artifact attached to the given run.
func (c *Client) ListArtifacts(ctx context.Context, runID int64) ([]types.Artifact, error) {
	opts := &github.ListOptions{PerPage: maxPerPage}

	var artifacts []types.Artifact

	for {
		page, err := withRetry(ctx, c, "list run artifacts", func(ctx context.Context) (artifactsPage, error) {
			list, resp, err := c.api.Actions.ListWorkflowRunArtifacts(ctx, c.owner, c.repo, runID, opts)
			if err != nil {
				return artifactsPage{}, errors.New(err)
			}

			return artifactsPage{artifacts: list.Artifacts, nextPage: resp.NextPage}, nil
		})
		if err != nil {
			return nil, err
		}

		for _, artifact := range page.artifacts {
			artifacts = append(artifacts, types.Artifact{
				ID:          artifact.GetID(),
				RunID:       runID,
				Name:        artifact.GetName(),
				Size:        artifact.GetSizeInBytes(),
				DownloadURL: artifact.GetArchiveDownloadURL(),
				CreatedAt:   artifact.GetCreatedAt().Time,
				Expired:     artifact.GetExpired(),
			})
		}

		if page.nextPage == 0 {
			return artifacts, nil
		}

		opts.Page = page.nextPage
	}
}

// FetchArtifactPayloads downloads the artifact archive and returns every `.json` entry in it as a separate document.
// The archive is stored in a temporary directory that is removed before returning.
func (c *Client) FetchArtifactPayloads(ctx context.Context, artifact types.Artifact) ([]types.Document, error) {
	if artifact.DownloadURL == "" {
		return nil, errors.Errorf("artifact %s #%d has no download URL", artifact.Name, artifact.ID)
	}

	if artifact.Expired {
		return nil, errors.New(ExpiredArtifactError{Name: artifact.Name, ID: artifact.ID})
	}

	logger := c.logger.WithField(log.FieldKeyArtifact, artifact.Name)

	signedURL, err := withRetry(ctx, c, "resolve artifact download URL", func(ctx context.Context) (string, error) {
		return c.resolveRedirect(ctx, artifact.DownloadURL)
	})
	if err != nil {
		return nil, err
	}

	tempDir, closer, err := safetemp.Dir("", "flaky-report-artifact-")
	if err != nil {
		return nil, errors.New(err)
	}
	defer closer.Close() //nolint:errcheck

	// safetemp only creates the parent of tempDir.
	if err := os.MkdirAll(tempDir, tempDirPerm); err != nil {
		return nil, errors.New(err)
	}

	archivePath := filepath.Join(tempDir, "artifact.zip")

	logger.Infof("Downloading %s #%d", artifact.Name, artifact.ID)

	if _, err := withRetry(ctx, c, "download artifact", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.download(ctx, signedURL, archivePath)
	}); err != nil {
		return nil, err
	}

	docs, err := ExtractJSONEntries(archivePath, artifact.Name)
	if err != nil {
		return nil, err
	}

	for i := range docs {
		docs[i].RunID = artifact.RunID
		docs[i].Artifact = artifact.Name
	}

	logger.Debugf("Extracted %d JSON documents", len(docs))

	return docs, nil
}

// resolveRedirect issues the authenticated request against the artifact download URL and returns the signed
// location it redirects to.
func (c *Client) resolveRedirect(ctx context.Context, downloadURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", errors.New(err)
	}

	req.Header.Set("Accept", acceptHeader)

	resp, err := c.authHTTP.Do(req)
	if err != nil {
		return "", errors.New(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < http.StatusMultipleChoices || resp.StatusCode >= http.StatusBadRequest {
		return "", &HTTPStatusError{URL: downloadURL, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	location, err := resp.Location()
	if err != nil {
		return "", errors.Errorf("failed to get redirect for artifact: %w", err)
	}

	return location.String(), nil
}

// download fetches url into the file at dst, truncating anything a previous attempt left behind.
func (c *Client) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.New(err)
	}

	resp, err := c.downloadHTTP.Do(req)
	if err != nil {
		return errors.New(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{URL: url, Status: resp.Status, StatusCode: resp.StatusCode}
	}

	file, err := os.Create(dst)
	if err != nil {
		return errors.New(err)
	}
	defer file.Close() //nolint:errcheck

	written, err := getter.Copy(ctx, file, resp.Body)
	if err != nil {
		return errors.New(err)
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return errors.Errorf("incorrect response size: expected %d bytes, but got %d bytes", resp.ContentLength, written)
	}

	return errors.New(file.Sync())
}

// ExtractJSONEntries reads every entry whose name ends in `.json` from the zip archive at archivePath.
// Documents are returned in archive order; their Source is `<sourcePrefix>/<entry name>`.
func ExtractJSONEntries(archivePath, sourcePrefix string) ([]types.Document, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Errorf("failed to open archive %s: %w", sourcePrefix, err)
	}
	defer reader.Close() //nolint:errcheck

	var docs []types.Document

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || path.Ext(entry.Name) != jsonExt {
			continue
		}

		body, err := readEntry(entry)
		if err != nil {
			return nil, errors.Errorf("failed to extract %s from %s: %w", entry.Name, sourcePrefix, err)
		}

		docs = append(docs, types.Document{
			Source: sourcePrefix + "/" + entry.Name,
			Entry:  entry.Name,
			Body:   body,
		})
	}

	return docs, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, err
	}

	if len(body) > maxEntrySize {
		return nil, errors.Errorf("entry exceeds %d bytes", maxEntrySize)
	}

	return body, nil
}

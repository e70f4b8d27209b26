package util

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gruntwork-io/flaky-report/internal/errors"
)

// WriteFileAtomic writes the content produced by write to a temporary file next to path and renames it into
// place once write succeeds.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.New(err)
	}

	tmpName := tmpFile.Name()

	if err := write(tmpFile); err != nil {
		tmpFile.Close()    //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck

		return err
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck

		return errors.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck

		return errors.New(err)
	}

	return nil
}

// Package osutil provides filesystem helpers shared by the build pipeline.
package osutil

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so readers never observe a partially
// written artifact. The temp file carries a random suffix to keep
// concurrent invocations from clobbering each other mid-write;
// last rename wins.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmpPath := filepath.Join(dir, "."+base+".tmp-"+uuid.NewString())

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return errors.Wrapf(err, "failed to write temp file for %s", path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to replace %s", path)
	}

	return nil
}

package downloader

import (
	"os"
	"path/filepath"
	"strings"

	"retreivr/internal/consts"
)

const partialSuffix = ".part"

// IsPartialStalled reports whether a partially-downloaded artifact for the
// video exists in the scratch directory and looks stalled. A partial below
// the size floor is treated as evidence of an active block rather than
// transient slowness. Any inspection error counts as stalled, so the caller
// re-attempts cleanly instead of trusting an unreadable artifact.
func IsPartialStalled(scratchDir, videoID string) bool {
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		// Missing scratch dir means nothing to resume.
		return !os.IsNotExist(err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, videoID) || !strings.HasSuffix(name, partialSuffix) {
			continue
		}

		info, err := os.Stat(filepath.Join(scratchDir, name))
		if err != nil {
			return true
		}

		if info.Size() < consts.PartialSizeFloor {
			return true
		}
	}

	return false
}

// Package media post-processes finished downloads: it embeds structured tags
// and cover art in place and optionally repackages the file into a requested
// container, always by stream copy and never by re-encoding.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"retreivr/pkg/shellquote"
)

// Runner executes the external muxing binary with an explicit argument list.
// Implementations must report a non-nil error for any non-zero exit status;
// success is never assumed without checking.
type Runner interface {
	Run(ctx context.Context, args ...string) error
}

// ExecRunner invokes ffmpeg as a subprocess.
type ExecRunner struct {
	// Bin is the ffmpeg binary path.
	Bin string
}

var _ Runner = ExecRunner{}

// Run executes the binary and folds captured stderr into the returned error.
func (r ExecRunner) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.Bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// The full pasteable command line makes failures reproducible.
		return fmt.Errorf("%s: %w: %s", shellquote.Join(r.Bin, args), err, lastLine(stderr.String()))
	}

	return nil
}

// lastLine keeps errors readable: ffmpeg's final stderr line carries the
// actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}

	return strings.TrimSpace(lines[len(lines)-1])
}

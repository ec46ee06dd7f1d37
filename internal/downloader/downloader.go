// Package downloader drives the unreliable extraction layer: it rotates
// through client-identity profiles with per-profile retries until one attempt
// produces a finished media file in the scratch directory.
package downloader

import "context"

// Attempter runs a single extraction attempt for one plan step. A nil error
// only means the extraction layer returned; the engine decides success by
// scanning the scratch directory for output.
type Attempter interface {
	Attempt(ctx context.Context, url, scratchDir string, step Step) error
}

// Package errs defines common error variables used across the application.
package errs

import "errors"

// Run-level errors.
var (
	// ErrLockHeld indicates another archiver run already holds the run lock.
	ErrLockHeld = errors.New("run lock already held")
)

// Playlist-source errors.
var (
	// ErrAuth indicates the account credentials are invalid for this run.
	ErrAuth = errors.New("source authorization failed")
	// ErrSourceFetch indicates a playlist listing or metadata fetch failed.
	ErrSourceFetch = errors.New("source fetch failed")
	// ErrNoMetadata indicates the source returned no metadata for a video.
	ErrNoMetadata = errors.New("no metadata for video")
	// ErrNoClient indicates no usable source client exists for an account.
	ErrNoClient = errors.New("no source client for account")
)

// Extraction errors.
var (
	// ErrExtractionExhausted indicates the whole attempt plan was exhausted
	// without producing a usable file.
	ErrExtractionExhausted = errors.New("extraction attempts exhausted")
	// ErrNoOutput indicates an attempt returned without error but left no
	// matching file in the scratch directory.
	ErrNoOutput = errors.New("no output file produced")
)

// Post-processing errors.
var (
	// ErrEmbedFailed indicates the metadata embedding step failed; the
	// original file is left untouched.
	ErrEmbedFailed = errors.New("metadata embedding failed")
	// ErrConversionRefused indicates the requested container conversion is
	// known to produce broken files and was not attempted.
	ErrConversionRefused = errors.New("container conversion refused")
)

// Copy and ledger errors.
var (
	// ErrCopyFailed indicates the relocation to the destination failed.
	ErrCopyFailed = errors.New("copy to destination failed")
	// ErrDuplicateRecord indicates a ledger record already exists for the video.
	ErrDuplicateRecord = errors.New("ledger record already exists")
)

// External binary errors.
var (
	// ErrBinaryNotFound indicates a required external binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrChecksumMismatch indicates a downloaded binary failed verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsupportedPlatform indicates the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

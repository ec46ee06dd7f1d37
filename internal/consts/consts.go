// Package consts defines application-wide constants.
package consts

import "time"

// Extraction retry plan.
const (
	// MaxPasses is the hard cap of full passes over the attempt plan per video.
	MaxPasses = 4
	// StepRetries is how many times each plan step is retried before moving on.
	StepRetries = 2
	// SocketTimeout is the per-request network timeout handed to yt-dlp.
	SocketTimeout = 120 * time.Second
	// TransferRetries is yt-dlp's own internal retry count per attempt.
	TransferRetries = 5
)

// PartialSizeFloor is the size below which an in-progress artifact is
// considered stuck: genuine slow transfers accumulate past this floor
// quickly, so a tiny partial almost always indicates an active block.
const PartialSizeFloor = 512 * 1024

// Containers.
const (
	// ExtWebM is the preferred output container.
	ExtWebM = "webm"
	// ExtMP4 is the fallback output container.
	ExtMP4 = "mp4"
)

// Network timeouts.
const (
	// ThumbnailTimeout bounds the cover-art download.
	ThumbnailTimeout = 15 * time.Second
	// NotifyTimeout bounds the end-of-run notification request.
	NotifyTimeout = 10 * time.Second
	// SourceTimeout bounds playlist-source API requests.
	SourceTimeout = 30 * time.Second
)

// SourcePageSize is the page size used when listing playlist items.
const SourcePageSize = 50

// Format selectors shared by the attempt plan.
const (
	// FormatStrict prefers capped-resolution WebM with an MP4 fallback.
	FormatStrict = "bestvideo[ext=webm][height<=1080]+bestaudio[ext=webm]/" +
		"bestvideo[ext=webm][height<=720]+bestaudio[ext=webm]/" +
		"bestvideo[ext=mp4][height<=1080]+bestaudio[ext=m4a]/" +
		"bestvideo[ext=mp4][height<=720]+bestaudio[ext=m4a]"
	// FormatBest is the generic best-quality fallback selector.
	FormatBest = "bestvideo*+bestaudio/best"
)

// Package fsname builds filesystem-safe and human-friendly file names for
// archived videos.
package fsname

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxLen is the longest sanitized name component produced.
const MaxLen = 180

var (
	reUnsafe     = regexp.MustCompile(`[\\/:*?"<>|]+`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Sanitize removes characters unsafe for filenames, collapses whitespace,
// normalizes to NFC and trims the result to MaxLen.
func Sanitize(name string) string {
	if name == "" {
		return ""
	}

	name = reUnsafe.ReplaceAllString(name, "")
	name = strings.TrimSpace(reWhitespace.ReplaceAllString(name, " "))
	name = norm.NFC.String(name)

	if len(name) > MaxLen {
		name = strings.TrimRight(name[:MaxLen], " ")
	}

	return name
}

// Pretty formats a display name for media servers: "Title - Channel (MM-YYYY)".
// The date suffix is omitted unless uploadDate is exactly eight digits.
func Pretty(title, channel, uploadDate string) string {
	titleS := Sanitize(title)
	channelS := Sanitize(channel)

	if isCompactDate(uploadDate) {
		return titleS + " - " + channelS + " (" + uploadDate[4:6] + "-" + uploadDate[0:4] + ")"
	}

	return titleS + " - " + channelS
}

// NormalizeDate reformats a compact YYYYMMDD date to YYYY-MM-DD. It returns
// an empty string for anything that is not exactly eight digits.
func NormalizeDate(uploadDate string) string {
	if !isCompactDate(uploadDate) {
		return ""
	}

	return uploadDate[0:4] + "-" + uploadDate[4:6] + "-" + uploadDate[6:8]
}

func isCompactDate(s string) bool {
	if len(s) != 8 {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// Package object implements the stored-object lifecycle: naming, upload
// validation and persistence, retrieval, enumeration, and deletion.
package object

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// maxFilenameLen bounds the sanitized filename segment of a key.
const maxFilenameLen = 255

var (
	unsafeChars    = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	underscoreRuns = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename maps a filename onto the key-safe alphabet: every rune
// outside [A-Za-z0-9._-] becomes an underscore, runs of underscores collapse
// to one, and the result is truncated to 255 bytes. Idempotent; the empty
// string is legal input and output.
func SanitizeFilename(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	if len(s) > maxFilenameLen {
		s = s[:maxFilenameLen]
	}
	return s
}

// GenerateKey derives a globally unique storage key for an uploaded file:
// "YYYY-MM-DD/<uuid>/<sanitized-filename>". The date prefix gives the backing
// store a chronological partitioning; the 128-bit UUID segment makes
// collisions a non-concern; the sanitized segment keeps keys URL-safe
// without escaping.
func GenerateKey(originalFilename string) string {
	return time.Now().UTC().Format("2006-01-02") + "/" + uuid.NewString() + "/" + SanitizeFilename(originalFilename)
}

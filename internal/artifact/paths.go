// Package artifact lays out the per-run, per-item files the pipeline produces.
//
// Every item of a run gets its own directory under the work directory, so a
// voiceover or video written for one item can never overwrite another's.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/google/uuid"
)

// Common path constants.
const (
	defaultDirPermissions  = 0o750
	invalidCharReplacement = "_"
	maxKeyLength           = 64
	runIDLength            = 8
	itemDirFormat          = "%03d-%s"
	fallbackItemKey        = "item"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Size formatting constants.
const (
	formatGB    = "%.1f GB"
	formatMB    = "%.1f MB"
	formatKB    = "%.1f KB"
	formatBytes = "%d B"
)

// File extension constants.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extM4A  = ".m4a"
	extMP3  = ".mp3"
	extOGG  = ".ogg"
	extWAV  = ".wav"
)

const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// Layout reserves artifact paths for the items of a single run.
type Layout struct {
	root          string
	runID         string
	audioFileName string
	videoFileName string
}

// NewLayout creates a layout rooted at workDir with a fresh run identifier.
func NewLayout(workDir, audioFileName, videoFileName string) *Layout {
	return &Layout{
		root:          workDir,
		runID:         uuid.NewString()[:runIDLength],
		audioFileName: audioFileName,
		videoFileName: videoFileName,
	}
}

// RunID returns the identifier shared by every artifact of the run.
func (l *Layout) RunID() string {
	return l.runID
}

// RunDir returns the directory holding all item directories of the run.
func (l *Layout) RunDir() string {
	return filepath.Join(l.root, l.runID)
}

// ItemPaths creates the directory for the item at index and returns the
// audio path, the agreed video path and the object-store key for it.
func (l *Layout) ItemPaths(index int, item core.CatalogItem) (core.ItemPaths, error) {
	dirName := fmt.Sprintf(itemDirFormat, index+1, ItemKey(item))
	itemDir := filepath.Join(l.RunDir(), dirName)

	err := EnsureDir(itemDir)
	if err != nil {
		return core.ItemPaths{}, err
	}

	return core.ItemPaths{
		AudioPath: filepath.Join(itemDir, l.audioFileName),
		VideoPath: filepath.Join(itemDir, l.videoFileName),
		StoreKey:  strings.Join([]string{l.runID, dirName, l.audioFileName}, "/"),
	}, nil
}

// ItemKey derives a filesystem-safe identity for an item, preferring the
// upstream ID over the display name.
func ItemKey(item core.CatalogItem) string {
	key := strings.TrimSpace(item.ID)
	if key == "" {
		key = strings.TrimSpace(item.Name)
	}

	key = SanitizeFilename(strings.ToLower(key))
	key = strings.Join(strings.Fields(key), "-")

	if utf8.RuneCountInString(key) > maxKeyLength {
		key = string([]rune(key)[:maxKeyLength])
	}

	if key == "" {
		return fallbackItemKey
	}

	return key
}

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5
// MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case extWAV, extMP3, extFLAC, extOGG, extM4A, extAAC:
		return true
	default:
		return false
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}

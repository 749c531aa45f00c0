package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"medialib/types"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true, ".webm": true,
	".m4v": true, ".wmv": true, ".flv": true, ".ts": true, ".mpg": true, ".mpeg": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
	".tif": true, ".tiff": true, ".heic": true,
}

var animatedExtensions = map[string]bool{
	".gif": true,
}

// KindForPath classifies a file by extension. The second return is false
// for files the library does not index.
func KindForPath(path string) (types.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExtensions[ext]:
		return types.KindVideo, true
	case animatedExtensions[ext]:
		return types.KindAnimated, true
	case imageExtensions[ext]:
		return types.KindImage, true
	default:
		return "", false
	}
}

// HashFile computes the strong content hash (sha256, lowercase hex) used
// for exact-duplicate detection.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package storage

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/bmp"
)

// ErrIO wraps every failure to persist an image.
var ErrIO = errors.New("image storage")

const fileNameLayout = "20060102150405"

// FileName names a bitmap after t with seconds granularity, so two saves in
// the same second share a name and the later one wins.
func FileName(t time.Time) string {
	return t.Format(fileNameLayout) + ".bmp"
}

// Saver writes images as BMP files into Dir.
type Saver struct {
	Dir string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Save encodes img under Dir, creating Dir if needed and replacing any file
// with the same name. It returns the full path written.
func (s Saver) Save(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: no image to save", ErrIO)
	}
	if s.Dir == "" {
		return "", fmt.Errorf("%w: no target directory", ErrIO)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create directory %s: %w", ErrIO, s.Dir, err)
	}

	targetPath := filepath.Join(s.Dir, FileName(now()))
	if err := os.Remove(targetPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: remove stale %s: %w", ErrIO, targetPath, err)
	}

	tmpPath := filepath.Join(s.Dir, ".save-"+strconv.FormatInt(time.Now().UnixNano(), 10)+".bmp")
	if err := writeBMP(tmpPath, img); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: write %s: %w", ErrIO, targetPath, err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: rename into %s: %w", ErrIO, targetPath, err)
	}
	return targetPath, nil
}

func writeBMP(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := bmp.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

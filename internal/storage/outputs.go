package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidName = errors.New("storage: invalid name")

// Outputs owns the flat directory that generated images and transcripts are
// written to. Nothing is ever removed from it.
type Outputs struct {
	dir string
}

// NewOutputs creates dir if needed.
func NewOutputs(dir string) (*Outputs, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: output dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure output dir: %w", err)
	}
	return &Outputs{dir: dir}, nil
}

func (o *Outputs) Dir() string {
	return o.dir
}

// ImagePath names an image after the unix second it was requested in. Two
// requests in the same second share a name.
func (o *Outputs) ImagePath(now time.Time) string {
	return filepath.Join(o.dir, fmt.Sprintf("image_%d.png", now.Unix()))
}

// WriteTranscript stores the original and enhanced text as <name>.txt.
func (o *Outputs) WriteTranscript(name, original, enhanced string) (string, error) {
	path, err := o.Resolve(name + ".txt")
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("Original: %s\n\nFuture: %s", original, enhanced)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("storage: write transcript: %w", err)
	}
	return path, nil
}

// Resolve maps a file name onto the output directory, rejecting names that
// would escape it.
func (o *Outputs) Resolve(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return "", ErrInvalidName
	}
	cleaned := filepath.ToSlash(filepath.Clean(name))
	if cleaned == "." || cleaned == ".." || strings.Contains(cleaned, "/") {
		return "", ErrInvalidName
	}
	return filepath.Join(o.dir, cleaned), nil
}

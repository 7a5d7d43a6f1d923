package imaging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/image/font/gofont/goregular"
)

type failingFont struct{}

func (failingFont) Load(float64) (Font, error) { return Font{}, errors.New("unavailable") }

func TestAcquireFontFallsThrough(t *testing.T) {
	f := AcquireFont(20, zerolog.Nop(),
		FileFont{Path: filepath.Join(t.TempDir(), "missing.ttf")},
		failingFont{},
		EmbeddedFont{},
	)
	if f.Name != "goregular" {
		t.Fatalf("expected embedded font, got %s", f.Name)
	}
	if f.Face == nil {
		t.Fatalf("expected a face")
	}
}

func TestAcquireFontNeverFails(t *testing.T) {
	f := AcquireFont(30, zerolog.Nop(), failingFont{})
	if f.Face == nil || f.Name != "basic7x13" {
		t.Fatalf("expected bitmap fallback, got %+v", f)
	}
	f = AcquireFont(30, zerolog.Nop())
	if f.Face == nil {
		t.Fatalf("expected bitmap fallback with no sources")
	}
}

func TestSystemFontSearchesDirs(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "truetype", "msttcorefonts")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(nested, "ARIAL.TTF")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}

	f, err := SystemFont{Name: "Arial", Dirs: []string{filepath.Join(dir, "absent"), dir}}.Load(20)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Path != path {
		t.Fatalf("unexpected path: %s", f.Path)
	}
}

func TestSystemFontNotFound(t *testing.T) {
	_, err := SystemFont{Name: "Arial", Dirs: []string{t.TempDir()}}.Load(20)
	if !errors.Is(err, errFontNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSystemFontLookupIsCached(t *testing.T) {
	dir := t.TempDir()
	src := SystemFont{Name: "Arial", Dirs: []string{dir}}
	if _, err := src.Load(20); !errors.Is(err, errFontNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arial.ttf"), goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Load(20); !errors.Is(err, errFontNotFound) {
		t.Fatalf("expected cached miss, got %v", err)
	}

	found := SystemFont{Name: "Arial", Dirs: []string{dir, t.TempDir()}}
	small, err := found.Load(12)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	large, err := found.Load(40)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if small.Path != large.Path {
		t.Fatalf("paths differ: %q vs %q", small.Path, large.Path)
	}
	if small.Face.Metrics().Height >= large.Face.Metrics().Height {
		t.Fatalf("face not loaded per size: %v >= %v", small.Face.Metrics().Height, large.Face.Metrics().Height)
	}
}

func TestFileFontRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(path, []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (FileFont{Path: path}).Load(20); err == nil {
		t.Fatalf("expected parse error")
	}
}

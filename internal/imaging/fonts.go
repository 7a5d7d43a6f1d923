package imaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var errFontNotFound = errors.New("imaging: font not found")

// Font is a loaded face plus where it came from. Path is empty for faces that
// are compiled into the binary.
type Font struct {
	Name string
	Path string
	Face font.Face
}

// FontSource is one strategy in the font fallback chain.
type FontSource interface {
	Load(points float64) (Font, error)
}

// SystemFont looks a font family up by file name in the platform font
// directories.
type SystemFont struct {
	Name string
	Dirs []string
}

func (s SystemFont) Load(points float64) (Font, error) {
	dirs := s.Dirs
	if len(dirs) == 0 {
		dirs = systemFontDirs()
	}
	path, ok := lookupSystemFont(s.Name, dirs)
	if !ok {
		return Font{}, fmt.Errorf("%w: %s", errFontNotFound, s.Name)
	}
	return FileFont{Path: path}.Load(points)
}

// fontPaths caches directory walks, including misses. Faces are still parsed
// per call because each render asks for its own size.
var fontPaths = struct {
	sync.Mutex
	m map[string]string
}{m: map[string]string{}}

func lookupSystemFont(name string, dirs []string) (string, bool) {
	key := strings.ToLower(name) + "\x00" + strings.Join(dirs, "\x00")
	fontPaths.Lock()
	defer fontPaths.Unlock()
	if path, ok := fontPaths.m[key]; ok {
		return path, path != ""
	}
	path := walkFontDirs(strings.ToLower(name)+".ttf", dirs)
	fontPaths.m[key] = path
	return path, path != ""
}

func walkFontDirs(want string, dirs []string) string {
	for _, dir := range dirs {
		var found string
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.ToLower(d.Name()) == want {
				found = path
				return fs.SkipAll
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// FileFont loads a TrueType or OpenType file from an absolute path.
type FileFont struct {
	Path string
}

func (f FileFont) Load(points float64) (Font, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return Font{}, err
	}
	face, err := parseFace(data, points)
	if err != nil {
		return Font{}, fmt.Errorf("imaging: parse %s: %w", f.Path, err)
	}
	return Font{Name: filepath.Base(f.Path), Path: f.Path, Face: face}, nil
}

// EmbeddedFont is Go Regular, which ships with golang.org/x/image.
type EmbeddedFont struct{}

func (EmbeddedFont) Load(points float64) (Font, error) {
	face, err := parseFace(goregular.TTF, points)
	if err != nil {
		return Font{}, err
	}
	return Font{Name: "goregular", Face: face}, nil
}

// BasicFont is the fixed 7x13 bitmap face. It ignores the requested size and
// never fails.
type BasicFont struct{}

func (BasicFont) Load(float64) (Font, error) {
	return Font{Name: "basic7x13", Face: basicfont.Face7x13}, nil
}

// DefaultFontSources is the fallback chain used when RenderOptions does not
// provide one.
func DefaultFontSources() []FontSource {
	return []FontSource{
		SystemFont{Name: "Arial"},
		FileFont{Path: "/System/Library/Fonts/Supplemental/Arial.ttf"},
		FileFont{Path: "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"},
		EmbeddedFont{},
		BasicFont{},
	}
}

// AcquireFont returns the first source that loads. When every source fails the
// bitmap face is returned, so callers always get a usable font.
func AcquireFont(points float64, logger zerolog.Logger, sources ...FontSource) Font {
	for _, src := range sources {
		f, err := src.Load(points)
		if err == nil {
			return f
		}
		logger.Debug().Err(err).Float64("points", points).Msgf("font source %T unavailable", src)
	}
	f, _ := BasicFont{}.Load(points)
	return f
}

func parseFace(data []byte, points float64) (font.Face, error) {
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func systemFontDirs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Library/Fonts", "/System/Library/Fonts"}
	case "windows":
		return []string{filepath.Join(os.Getenv("WINDIR"), "Fonts")}
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".fonts"), filepath.Join(home, ".local", "share", "fonts"))
		}
		return dirs
	}
}

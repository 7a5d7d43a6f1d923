//go:build imagick

package imaging

import (
	"bytes"
	"fmt"

	"github.com/gographics/imagick/imagick"
	"github.com/rs/zerolog"
)

type magickCanvas struct {
	mw      *imagick.MagickWand
	sources []FontSource
	fonts   map[float64]string
	logger  zerolog.Logger
}

func newCanvas(scene *Scene, sources []FontSource, logger zerolog.Logger) (canvas, error) {
	imagick.Initialize()

	mw := imagick.NewMagickWand()
	bg := imagick.NewPixelWand()
	defer bg.Destroy()
	bg.SetColor(hexColor(scene.Background.R, scene.Background.G, scene.Background.B))

	if err := mw.NewImage(uint(scene.Width), uint(scene.Height), bg); err != nil {
		mw.Destroy()
		imagick.Terminate()
		return nil, err
	}
	if err := mw.SetImageFormat("png"); err != nil {
		mw.Destroy()
		imagick.Terminate()
		return nil, err
	}

	return &magickCanvas{
		mw:      mw,
		sources: sources,
		fonts:   make(map[float64]string),
		logger:  logger,
	}, nil
}

// fontPath resolves the chain to a file ImageMagick can open. Faces compiled
// into the binary have no path, in which case ImageMagick's default is used.
func (c *magickCanvas) fontPath(points float64) string {
	if p, ok := c.fonts[points]; ok {
		return p
	}
	f := AcquireFont(points, c.logger, c.sources...)
	_ = f.Face.Close()
	c.fonts[points] = f.Path
	return f.Path
}

func (c *magickCanvas) draw(op Op, fn func(dw *imagick.DrawingWand) error) error {
	dw := imagick.NewDrawingWand()
	defer dw.Destroy()

	stroke := imagick.NewPixelWand()
	defer stroke.Destroy()
	stroke.SetColor(hexColor(op.Color.R, op.Color.G, op.Color.B))

	fill := imagick.NewPixelWand()
	defer fill.Destroy()
	fill.SetColor("none")

	dw.SetStrokeColor(stroke)
	dw.SetStrokeWidth(op.Width)
	dw.SetFillColor(fill)

	if err := fn(dw); err != nil {
		return err
	}
	return c.mw.DrawImage(dw)
}

func (c *magickCanvas) text(op Op) error {
	return c.draw(op, func(dw *imagick.DrawingWand) error {
		fg := imagick.NewPixelWand()
		defer fg.Destroy()
		fg.SetColor(hexColor(op.Color.R, op.Color.G, op.Color.B))
		dw.SetFillColor(fg)
		dw.SetStrokeWidth(0)
		if path := c.fontPath(op.FontSize); path != "" {
			if err := dw.SetFont(path); err != nil {
				return fmt.Errorf("imaging: set font %s: %w", path, err)
			}
		}
		dw.SetFontSize(op.FontSize)
		// Annotation positions the baseline; shift by the size to anchor the top.
		dw.Annotation(op.X1, op.Y1+op.FontSize, op.Text)
		return nil
	})
}

func (c *magickCanvas) line(op Op) error {
	return c.draw(op, func(dw *imagick.DrawingWand) error {
		dw.Line(op.X1, op.Y1, op.X2, op.Y2)
		return nil
	})
}

func (c *magickCanvas) circle(op Op) error {
	return c.draw(op, func(dw *imagick.DrawingWand) error {
		dw.Circle(op.X1, op.Y1, op.X1+op.Radius, op.Y1)
		return nil
	})
}

func (c *magickCanvas) dot(op Op) error {
	return c.draw(op, func(dw *imagick.DrawingWand) error {
		fg := imagick.NewPixelWand()
		defer fg.Destroy()
		fg.SetColor(hexColor(op.Color.R, op.Color.G, op.Color.B))
		dw.SetFillColor(fg)
		dw.Circle(op.X1, op.Y1, op.X1+op.Radius, op.Y1)
		return nil
	})
}

func (c *magickCanvas) encode() ([]byte, error) {
	blob := c.mw.GetImageBlob()
	if len(blob) == 0 {
		return nil, fmt.Errorf("imaging: imagemagick returned an empty blob")
	}
	return bytes.Clone(blob), nil
}

func (c *magickCanvas) close() {
	c.mw.Destroy()
	imagick.Terminate()
}

func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

//go:build !imagick

package imaging

import (
	"bytes"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
)

type ggCanvas struct {
	dc      *gg.Context
	sources []FontSource
	faces   map[float64]font.Face
	logger  zerolog.Logger
}

func newCanvas(scene *Scene, sources []FontSource, logger zerolog.Logger) (canvas, error) {
	dc := gg.NewContext(scene.Width, scene.Height)
	dc.SetColor(scene.Background)
	dc.Clear()
	return &ggCanvas{
		dc:      dc,
		sources: sources,
		faces:   make(map[float64]font.Face),
		logger:  logger,
	}, nil
}

func (c *ggCanvas) face(points float64) font.Face {
	if f, ok := c.faces[points]; ok {
		return f
	}
	f := AcquireFont(points, c.logger, c.sources...)
	c.faces[points] = f.Face
	return f.Face
}

func (c *ggCanvas) text(op Op) error {
	c.dc.SetFontFace(c.face(op.FontSize))
	c.dc.SetColor(op.Color)
	c.dc.DrawStringAnchored(op.Text, op.X1, op.Y1, 0, 1)
	return nil
}

func (c *ggCanvas) line(op Op) error {
	c.dc.SetColor(op.Color)
	c.dc.SetLineWidth(op.Width)
	c.dc.DrawLine(op.X1, op.Y1, op.X2, op.Y2)
	c.dc.Stroke()
	return nil
}

func (c *ggCanvas) circle(op Op) error {
	c.dc.SetColor(op.Color)
	c.dc.SetLineWidth(op.Width)
	c.dc.DrawCircle(op.X1, op.Y1, op.Radius)
	c.dc.Stroke()
	return nil
}

func (c *ggCanvas) dot(op Op) error {
	c.dc.SetColor(op.Color)
	c.dc.DrawCircle(op.X1, op.Y1, op.Radius)
	c.dc.Fill()
	return nil
}

func (c *ggCanvas) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *ggCanvas) close() {
	for _, f := range c.faces {
		_ = f.Close()
	}
}

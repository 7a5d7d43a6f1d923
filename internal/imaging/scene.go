package imaging

import (
	"image/color"
	"math"
	"math/rand"
)

const (
	CanvasWidth  = 512
	CanvasHeight = 512

	Title         = "VISION 20 YEARS FROM NOW"
	TitleFontSize = 30
	BodyFontSize  = 20

	textMargin  = 60
	bodyX       = 30
	bodyTop     = 80
	lineHeight  = 30
	cornerInset = 20
	cornerArm   = 50

	portalRadius = 40
	portalOffset = 100
	rayScale     = 1.2
	rayCount     = 8

	circuitCount  = 5
	circuitMinLen = 30
	circuitMaxLen = 100
	dotRadius     = 3
)

// Palette holds the candidate background colors.
var Palette = []color.RGBA{
	{R: 73, G: 109, B: 137, A: 255},
	{R: 120, G: 180, B: 120, A: 255},
	{R: 180, G: 120, B: 120, A: 255},
	{R: 150, G: 150, B: 90, A: 255},
	{R: 120, G: 120, B: 180, A: 255},
}

var ink = color.RGBA{R: 255, G: 255, B: 255, A: 255}

type OpKind int

const (
	OpText OpKind = iota
	OpLine
	OpCircle
	OpDot
)

func (k OpKind) String() string {
	switch k {
	case OpText:
		return "text"
	case OpLine:
		return "line"
	case OpCircle:
		return "circle"
	case OpDot:
		return "dot"
	default:
		return "unknown"
	}
}

// Op is a single drawing primitive. Text ops are anchored at their top-left
// corner (X1, Y1); circles and dots are centred on (X1, Y1).
type Op struct {
	Kind     OpKind
	X1, Y1   float64
	X2, Y2   float64
	Radius   float64
	Width    float64
	Text     string
	FontSize float64
	Color    color.RGBA
}

// Step groups the ops of one decoration so that a failure can stop the
// drawing at a step boundary.
type Step struct {
	Name string
	Ops  []Op
}

type Scene struct {
	Width      int
	Height     int
	Background color.RGBA
	Lines      []string
	Steps      []Step
}

// Compose lays out the fallback image for text. Only the background color and
// the circuit decorations depend on rng.
func Compose(text string, rng *rand.Rand) *Scene {
	w, h := float64(CanvasWidth), float64(CanvasHeight)
	scene := &Scene{
		Width:      CanvasWidth,
		Height:     CanvasHeight,
		Background: Palette[rng.Intn(len(Palette))],
		Lines:      WrapText(text, CanvasWidth-textMargin, DefaultCharWidth),
	}

	scene.Steps = append(scene.Steps,
		Step{Name: "title", Ops: []Op{textOp(w/2-150, 20, Title, TitleFontSize)}},
		Step{Name: "divider", Ops: []Op{lineOp(50, 60, w-50, 60, 2)}},
		bodyStep(scene.Lines),
		cornerStep(w, h),
		Step{Name: "portal", Ops: []Op{{Kind: OpCircle, X1: w / 2, Y1: h - portalOffset, Radius: portalRadius, Width: 2, Color: ink}}},
		rayStep(w/2, h-portalOffset),
		circuitStep(rng, CanvasWidth, CanvasHeight),
	)
	return scene
}

func bodyStep(lines []string) Step {
	ops := make([]Op, 0, len(lines))
	for i, line := range lines {
		ops = append(ops, textOp(bodyX, float64(bodyTop+i*lineHeight), line, BodyFontSize))
	}
	return Step{Name: "body", Ops: ops}
}

func cornerStep(w, h float64) Step {
	in, arm := float64(cornerInset), float64(cornerArm)
	corners := []struct{ x, y, dx, dy float64 }{
		{in, in, 1, 1},
		{w - in, in, -1, 1},
		{in, h - in, 1, -1},
		{w - in, h - in, -1, -1},
	}
	ops := make([]Op, 0, 2*len(corners))
	for _, c := range corners {
		ops = append(ops,
			lineOp(c.x, c.y, c.x+c.dx*arm, c.y, 2),
			lineOp(c.x, c.y, c.x, c.y+c.dy*arm, 2),
		)
	}
	return Step{Name: "corners", Ops: ops}
}

func rayStep(cx, cy float64) Step {
	length := portalRadius * rayScale
	ops := make([]Op, 0, rayCount)
	for i := 0; i < rayCount; i++ {
		theta := float64(i) * 2 * math.Pi / rayCount
		ops = append(ops, lineOp(cx, cy, cx+length*math.Cos(theta), cy+length*math.Sin(theta), 1))
	}
	return Step{Name: "rays", Ops: ops}
}

func circuitStep(rng *rand.Rand, w, h int) Step {
	ops := make([]Op, 0, 2*circuitCount)
	for i := 0; i < circuitCount; i++ {
		sx := randRange(rng, 50, w-50)
		sy := randRange(rng, 150, h-150)
		ex := sx + randSign(rng)*randRange(rng, circuitMinLen, circuitMaxLen)
		ey := sy + randSign(rng)*randRange(rng, circuitMinLen, circuitMaxLen)
		ops = append(ops,
			lineOp(float64(sx), float64(sy), float64(ex), float64(ey), 1),
			Op{Kind: OpDot, X1: float64(ex), Y1: float64(ey), Radius: dotRadius, Color: ink},
		)
	}
	return Step{Name: "circuits", Ops: ops}
}

func textOp(x, y float64, text string, size float64) Op {
	return Op{Kind: OpText, X1: x, Y1: y, Text: text, FontSize: size, Color: ink}
}

func lineOp(x1, y1, x2, y2, width float64) Op {
	return Op{Kind: OpLine, X1: x1, Y1: y1, X2: x2, Y2: y2, Width: width, Color: ink}
}

// randRange returns an int in [lo, hi].
func randRange(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func randSign(rng *rand.Rand) int {
	if rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

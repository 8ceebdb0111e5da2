package lib

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/spatial/r2"
)

// Drawing colors, passed to gocv which writes them in BGR order
var (
	Red   = color.RGBA{R: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	Black = color.RGBA{A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	DefaultPencilSize = 5
	MinPencilSize     = 1
	MaxPencilSize     = 50

	// ShakeDistance is the longest jump, in pixels, still joined by a line under shake prevention
	ShakeDistance = 40
)

// ColorName returns the name of one of the pencil colors
func ColorName(c color.RGBA) string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Black:
		return "black"
	case White:
		return "white"
	}
	return "custom"
}

// StrokeKind says what a pencil move puts on the canvas
type StrokeKind int

const (
	StrokeNone StrokeKind = iota
	StrokeDot
	StrokeLine
)

// Stroke is a single drawing operation produced by the pencil
type Stroke struct {
	Kind  StrokeKind
	From  image.Point
	To    image.Point
	Color color.RGBA
	Size  int
}

// Pencil holds the drawing state mutated by keyboard, mouse and marker events
type Pencil struct {
	Color           color.RGBA
	Size            int
	Down            bool
	ShakePrevention bool

	last    image.Point
	hasLast bool
}

// NewPencil returns a red pencil of the default size with the pen up
func NewPencil() *Pencil {
	return &Pencil{
		Color: Red,
		Size:  DefaultPencilSize,
	}
}

// Grow increases the pencil size up to MaxPencilSize
func (p *Pencil) Grow() int {
	if p.Size < MaxPencilSize {
		p.Size++
	}
	return p.Size
}

// Shrink decreases the pencil size down to MinPencilSize
func (p *Pencil) Shrink() int {
	p.Size = max(MinPencilSize, p.Size-1)
	return p.Size
}

// Press puts the pen down without a previous point, so the next move starts a new stroke
func (p *Pencil) Press() {
	p.Down = true
	p.hasLast = false
}

// Lift raises the pen and forgets the last position
func (p *Pencil) Lift() {
	p.Down = false
	p.hasLast = false
}

// Last returns the last cursor position and whether there is one
func (p *Pencil) Last() (image.Point, bool) {
	return p.last, p.hasLast
}

// MoveTo moves the cursor and returns what has to be drawn for the move
func (p *Pencil) MoveTo(to image.Point) Stroke {
	from, hadLast := p.last, p.hasLast
	p.last = to
	p.hasLast = true

	if !p.Down {
		return Stroke{Kind: StrokeNone, To: to}
	}

	stroke := Stroke{Kind: StrokeLine, From: from, To: to, Color: p.Color, Size: p.Size}
	switch {
	case !hadLast:
		stroke.Kind = StrokeDot
		stroke.From = to
	case p.ShakePrevention && isShake(from, to):
		stroke.Kind = StrokeDot
		stroke.From = to
	}
	return stroke
}

// isShake reports whether a jump is too long to be a deliberate line
func isShake(from, to image.Point) bool {
	d := r2.Sub(r2.Vec{X: float64(to.X), Y: float64(to.Y)}, r2.Vec{X: float64(from.X), Y: float64(from.Y)})
	return r2.Norm2(d) > ShakeDistance*ShakeDistance
}

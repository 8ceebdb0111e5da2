package lib

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPencilSizeClamp(t *testing.T) {
	p := NewPencil()
	assert.Equal(t, DefaultPencilSize, p.Size)

	for i := 0; i < 20; i++ {
		p.Shrink()
	}
	assert.Equal(t, MinPencilSize, p.Size)

	for i := 0; i < 100; i++ {
		p.Grow()
	}
	assert.Equal(t, MaxPencilSize, p.Size)

	assert.Equal(t, MaxPencilSize-1, p.Shrink())
}

func TestPencilMoveTo(t *testing.T) {
	p := NewPencil()

	// Pen up: only the cursor moves
	s := p.MoveTo(image.Pt(5, 5))
	assert.Equal(t, StrokeNone, s.Kind)
	last, ok := p.Last()
	assert.True(t, ok)
	assert.Equal(t, image.Pt(5, 5), last)

	// First point of a stroke is a dot
	p.Press()
	s = p.MoveTo(image.Pt(10, 10))
	assert.Equal(t, StrokeDot, s.Kind)
	assert.Equal(t, image.Pt(10, 10), s.To)

	// Following points are joined
	s = p.MoveTo(image.Pt(12, 15))
	assert.Equal(t, Stroke{Kind: StrokeLine, From: image.Pt(10, 10), To: image.Pt(12, 15), Color: Red, Size: DefaultPencilSize}, s)

	p.Lift()
	_, ok = p.Last()
	assert.False(t, ok)
	assert.False(t, p.Down)
}

func TestPencilShakePrevention(t *testing.T) {
	testCases := []struct {
		name  string
		shake bool
		to    image.Point
		want  StrokeKind
	}{
		{"short jump joined", true, image.Pt(30, 0), StrokeLine},
		{"exactly the limit joined", true, image.Pt(40, 0), StrokeLine},
		{"long jump becomes a dot", true, image.Pt(30, 30), StrokeDot},
		{"long jump joined without prevention", false, image.Pt(300, 300), StrokeLine},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPencil()
			p.ShakePrevention = tc.shake
			p.Press()
			p.MoveTo(image.Pt(0, 0))

			s := p.MoveTo(tc.to)
			assert.Equal(t, tc.want, s.Kind)
			assert.Equal(t, tc.to, s.To)
		})
	}
}

func TestColorName(t *testing.T) {
	assert.Equal(t, "red", ColorName(Red))
	assert.Equal(t, "green", ColorName(Green))
	assert.Equal(t, "blue", ColorName(Blue))
	assert.Equal(t, "custom", ColorName(zoneOutline))
}

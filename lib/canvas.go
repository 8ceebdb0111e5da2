package lib

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// Canvas is the persistent white drawing surface
type Canvas struct {
	mat gocv.Mat
}

// NewCanvas creates a white canvas of the given size
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		mat: gocv.NewMatWithSizeFromScalar(rgbaScalar(White), height, width, gocv.MatTypeCV8UC3),
	}
}

// Close releases the canvas buffer
func (c *Canvas) Close() {
	c.mat.Close()
}

// Mat returns the underlying buffer, still owned by the canvas
func (c *Canvas) Mat() gocv.Mat {
	return c.mat
}

// Size returns the canvas dimensions
func (c *Canvas) Size() image.Point {
	return image.Pt(c.mat.Cols(), c.mat.Rows())
}

// CopyTo copies the canvas into dst
func (c *Canvas) CopyTo(dst *gocv.Mat) {
	c.mat.CopyTo(dst)
}

// Image returns the canvas as an RGBA image
func (c *Canvas) Image() (image.Image, error) {
	return c.mat.ToImage()
}

// Clear resets every pixel to white
func (c *Canvas) Clear() {
	c.mat.SetTo(rgbaScalar(White))
}

// Line draws a segment of the given thickness
func (c *Canvas) Line(from, to image.Point, col color.RGBA, size int) {
	gocv.Line(&c.mat, from, to, col, size)
}

// Dot draws a filled circle of the given diameter
func (c *Canvas) Dot(at image.Point, col color.RGBA, size int) {
	gocv.Circle(&c.mat, at, max(1, size/2), col, -1)
}

// Draw applies a pencil stroke
func (c *Canvas) Draw(s Stroke) {
	switch s.Kind {
	case StrokeDot:
		c.Dot(s.To, s.Color, s.Size)
	case StrokeLine:
		c.Line(s.From, s.To, s.Color, s.Size)
	}
}

// Composite writes the camera frame with every non-white canvas pixel painted over it
func (c *Canvas) Composite(frame gocv.Mat, dst *gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(c.mat, &gray, gocv.ColorBGRToGray)

	painted := gocv.NewMat()
	defer painted.Close()
	gocv.Threshold(gray, &painted, 254, 255, gocv.ThresholdBinaryInv)

	frame.CopyTo(dst)
	c.mat.CopyToWithMask(dst, painted)
}

// EncodePNG returns the canvas as PNG bytes
func (c *Canvas) EncodePNG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, c.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode canvas: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases the native buffer
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// Save writes the canvas to dir as drawing_<timestamp>.png and returns the path
func (c *Canvas) Save(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, DrawingFileName(now, ".png"))
	if ok := gocv.IMWrite(path, c.mat); !ok {
		return "", fmt.Errorf("failed to write %s", path)
	}
	return path, nil
}

// DrawingFileName names saved drawings after the local time in ctime layout, spaces replaced by underscores
func DrawingFileName(now time.Time, ext string) string {
	stamp := strings.ReplaceAll(now.Format("Mon Jan _2 15:04:05 2006"), " ", "_")
	return "drawing_" + stamp + ext
}

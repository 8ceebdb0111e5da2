package lib

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blankMask(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC1)
}

func TestLargestLabel(t *testing.T) {
	testCases := []struct {
		name  string
		areas []int
		want  int
	}{
		{"no labels", nil, -1},
		{"background only", []int{0}, -1},
		{"single component", []int{0, 12}, 1},
		{"largest wins", []int{0, 5, 40, 7}, 2},
		{"tie keeps lowest label", []int{0, 9, 30, 30}, 2},
		{"background area ignored", []int{1000, 3}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LargestLabel(tc.areas))
		})
	}
}

func TestDetectMaskSingleComponentCentroid(t *testing.T) {
	mask := blankMask(100, 80)
	defer mask.Close()
	// Inclusive corners: 21 x 21 pixels centred on (20, 30)
	gocv.Rectangle(&mask, image.Rect(10, 20, 30, 40), White, -1)

	detector := NewMarkerDetector(DefaultColorDetectionConfig(FullRange()))
	defer detector.Close()

	first := detector.DetectMask(mask)
	require.True(t, first.Found)
	assert.Equal(t, image.Pt(20, 30), first.Centroid)
	assert.Equal(t, 21*21, first.Area)

	// Same mask, same answer
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, detector.DetectMask(mask))
	}
}

func TestDetectMaskPicksLargestComponent(t *testing.T) {
	mask := blankMask(120, 80)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(2, 2, 6, 6), White, -1)
	gocv.Rectangle(&mask, image.Rect(60, 40, 100, 70), White, -1)

	detector := NewMarkerDetector(DefaultColorDetectionConfig(FullRange()))
	defer detector.Close()

	det := detector.DetectMask(mask)
	require.True(t, det.Found)
	assert.Equal(t, image.Pt(80, 55), det.Centroid)
}

func TestDetectMaskDiagonalPixelsAreSeparateComponents(t *testing.T) {
	mask := blankMask(10, 10)
	defer mask.Close()
	mask.SetUCharAt(2, 2, 255)
	mask.SetUCharAt(3, 3, 255)
	mask.SetUCharAt(3, 4, 255)

	detector := NewMarkerDetector(DefaultColorDetectionConfig(FullRange()))
	defer detector.Close()

	// With 4-connectivity the diagonal neighbour is its own component
	det := detector.DetectMask(mask)
	require.True(t, det.Found)
	assert.Equal(t, 2, det.Area)
}

func TestDetectEmptyMask(t *testing.T) {
	mask := blankMask(40, 30)
	defer mask.Close()

	detector := NewMarkerDetector(DefaultColorDetectionConfig(FullRange()))
	defer detector.Close()

	det := detector.DetectMask(mask)
	assert.False(t, det.Found)
	assert.Equal(t, -1, det.Label)
}

func TestDetectMinArea(t *testing.T) {
	mask := blankMask(40, 30)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(5, 5, 7, 7), White, -1)

	config := DefaultColorDetectionConfig(FullRange())
	config.MinArea = 50
	detector := NewMarkerDetector(config)
	defer detector.Close()

	assert.False(t, detector.DetectMask(mask).Found)
}

func bgrAt(m gocv.Mat, p image.Point) [3]uint8 {
	v := m.GetVecbAt(p.Y, p.X)
	return [3]uint8{v[0], v[1], v[2]}
}

// redMarkerFrame has a 21 x 21 red marker centred on (20, 30), a small red speck
// and a blue patch on a dark gray background
func redMarkerFrame() gocv.Mat {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(50, 50, 50, 0), 80, 100, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(10, 20, 30, 40), Red, -1)
	gocv.Rectangle(&frame, image.Rect(60, 60, 62, 62), Red, -1)
	gocv.Rectangle(&frame, image.Rect(50, 10, 90, 40), Blue, -1)
	return frame
}

var redMarker = Limits{
	B: Range{Min: 0, Max: 60},
	G: Range{Min: 0, Max: 60},
	R: Range{Min: 200, Max: 255},
}

func TestDetectFrameUsesLimits(t *testing.T) {
	frame := redMarkerFrame()
	defer frame.Close()

	detector := NewMarkerDetector(DefaultColorDetectionConfig(redMarker))
	defer detector.Close()

	det := detector.Detect(frame)
	require.True(t, det.Found)
	assert.Equal(t, image.Pt(20, 30), det.Centroid)
	assert.Equal(t, 21*21, det.Area)
}

func TestAnnotateMarkerPreview(t *testing.T) {
	frame := redMarkerFrame()
	defer frame.Close()

	detector := NewMarkerDetector(DefaultColorDetectionConfig(redMarker))
	defer detector.Close()

	det := detector.Detect(frame)
	require.True(t, det.Found)

	annotated := gocv.NewMat()
	defer annotated.Close()
	detector.Annotate(frame, det, &annotated)

	require.Equal(t, frame.Rows(), annotated.Rows())
	require.Equal(t, frame.Cols(), annotated.Cols())

	// Red cross on the centroid
	assert.Equal(t, [3]uint8{0, 0, 255}, bgrAt(annotated, image.Pt(20, 30)))
	// Largest component blacked out away from the cross
	assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(annotated, image.Pt(11, 21)))
	assert.Equal(t, [3]uint8{0, 0, 0}, bgrAt(annotated, image.Pt(29, 39)))
	// Smaller component: red frame plus green tint
	assert.Equal(t, [3]uint8{0, 255, 255}, bgrAt(annotated, image.Pt(61, 61)))
	// Unmasked pixels are left alone
	assert.Equal(t, [3]uint8{50, 50, 50}, bgrAt(annotated, image.Pt(5, 5)))
	assert.Equal(t, [3]uint8{255, 0, 0}, bgrAt(annotated, image.Pt(70, 20)))
}

func TestAnnotateWithoutDetectionOnlyTints(t *testing.T) {
	frame := redMarkerFrame()
	defer frame.Close()

	config := DefaultColorDetectionConfig(redMarker)
	config.MaskColor = Blue
	detector := NewMarkerDetector(config)
	defer detector.Close()

	detector.Detect(frame)

	annotated := gocv.NewMat()
	defer annotated.Close()
	detector.Annotate(frame, Detection{Label: -1}, &annotated)

	// Red frame plus blue tint, no cross and nothing blacked out
	assert.Equal(t, [3]uint8{255, 0, 255}, bgrAt(annotated, image.Pt(20, 30)))
	assert.Equal(t, [3]uint8{255, 0, 255}, bgrAt(annotated, image.Pt(11, 21)))
	assert.Equal(t, [3]uint8{255, 0, 255}, bgrAt(annotated, image.Pt(61, 61)))
	assert.Equal(t, [3]uint8{50, 50, 50}, bgrAt(annotated, image.Pt(5, 5)))
}

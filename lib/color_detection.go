package lib

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ColorDetectionConfig holds configuration parameters for marker detection
type ColorDetectionConfig struct {
	Limits       Limits
	Connectivity int // 4 or 8 neighbour connectivity of the components
	MinArea      int // Components smaller than this are ignored
	MaskColor    color.RGBA
	CrossColor   color.RGBA
	CrossSize    int
}

// DefaultColorDetectionConfig returns the detection settings used by ar_paint
func DefaultColorDetectionConfig(limits Limits) ColorDetectionConfig {
	return ColorDetectionConfig{
		Limits:       limits,
		Connectivity: 4,
		MinArea:      0,
		MaskColor:    Green,
		CrossColor:   Red,
		CrossSize:    5,
	}
}

// Detection is the result of looking for the marker in a single frame
type Detection struct {
	Found    bool
	Centroid image.Point
	Area     int
	Label    int
}

// MarkerDetector finds the largest blob of the calibrated color in BGR frames
type MarkerDetector struct {
	Config    ColorDetectionConfig
	mask      gocv.Mat
	labels    gocv.Mat
	stats     gocv.Mat
	centroids gocv.Mat
}

// NewMarkerDetector creates a detector with the given configuration
func NewMarkerDetector(config ColorDetectionConfig) *MarkerDetector {
	return &MarkerDetector{
		Config:    config,
		mask:      gocv.NewMat(),
		labels:    gocv.NewMat(),
		stats:     gocv.NewMat(),
		centroids: gocv.NewMat(),
	}
}

// Close releases the detector's matrices
func (md *MarkerDetector) Close() {
	md.mask.Close()
	md.labels.Close()
	md.stats.Close()
	md.centroids.Close()
}

// Mask returns the binary mask of the last processed frame.
// The Mat stays owned by the detector.
func (md *MarkerDetector) Mask() gocv.Mat {
	return md.mask
}

// Detect thresholds the frame and returns the centroid of its largest connected component
func (md *MarkerDetector) Detect(frame gocv.Mat) Detection {
	md.Config.Limits.Threshold(frame, &md.mask)
	return md.largestComponent()
}

// DetectMask runs the component search on an already thresholded mask
func (md *MarkerDetector) DetectMask(mask gocv.Mat) Detection {
	mask.CopyTo(&md.mask)
	return md.largestComponent()
}

func (md *MarkerDetector) largestComponent() Detection {
	n := gocv.ConnectedComponentsWithStatsWithParams(md.mask, &md.labels, &md.stats, &md.centroids,
		md.Config.Connectivity, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	// Label 0 is the background
	areas := make([]int, n)
	for label := 1; label < n; label++ {
		areas[label] = int(md.stats.GetIntAt(label, int(gocv.CC_STAT_AREA)))
	}

	label := LargestLabel(areas)
	if label < 0 || areas[label] < md.Config.MinArea {
		return Detection{Label: -1}
	}

	return Detection{
		Found: true,
		Centroid: image.Pt(
			int(md.centroids.GetDoubleAt(label, 0)),
			int(md.centroids.GetDoubleAt(label, 1)),
		),
		Area:  areas[label],
		Label: label,
	}
}

// LargestLabel returns the foreground label with the biggest area, or -1 when there is none.
// areas is indexed by label and areas[0] (background) is ignored. Ties keep the lowest label.
func LargestLabel(areas []int) int {
	best := -1
	for label := 1; label < len(areas); label++ {
		if areas[label] <= 0 {
			continue
		}
		if best < 0 || areas[label] > areas[best] {
			best = label
		}
	}
	return best
}

// Annotate builds the marker preview: the frame with the mask tinted in, the
// detected component blacked out and a cross on its centroid
func (md *MarkerDetector) Annotate(frame gocv.Mat, det Detection, dst *gocv.Mat) {
	rows, cols := frame.Rows(), frame.Cols()

	tint := gocv.NewMatWithSizeFromScalar(rgbaScalar(md.Config.MaskColor), rows, cols, gocv.MatTypeCV8UC3)
	defer tint.Close()

	tinted := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer tinted.Close()

	tint.CopyToWithMask(&tinted, md.mask)
	gocv.Add(frame, tinted, dst)

	if !det.Found {
		return
	}

	component := gocv.NewMat()
	defer component.Close()

	l := float64(det.Label)
	gocv.InRangeWithScalar(md.labels, gocv.NewScalar(l, l, l, 0), gocv.NewScalar(l, l, l, 0), &component)

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer black.Close()
	black.CopyToWithMask(dst, component)

	DrawCross(dst, det.Centroid, md.Config.CrossSize, md.Config.CrossColor)
}

// DrawCross draws the centroid marker used on the preview window
func DrawCross(img *gocv.Mat, at image.Point, size int, c color.RGBA) {
	gocv.Line(img, image.Pt(at.X+size, at.Y), image.Pt(at.X-size, at.Y), c, size)
	gocv.Line(img, image.Pt(at.X, at.Y+size), image.Pt(at.X, at.Y-size), c, size)
}

// rgbaScalar converts a color to a BGR scalar for Mat initialisation
func rgbaScalar(c color.RGBA) gocv.Scalar {
	return gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0)
}

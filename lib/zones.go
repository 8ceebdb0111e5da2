package lib

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// zoneColors is the target color cycle, numbered 1, 2, 3
var zoneColors = []color.RGBA{Red, Green, Blue}

var zoneOutline = color.RGBA{R: 160, G: 160, B: 160, A: 255}

// Zone is one numbered region of the paint-by-numbers board
type Zone struct {
	Number int
	Rect   image.Rectangle
	Target color.RGBA
}

// Zones is a grid of numbered regions laid over the canvas
type Zones []Zone

// NewZones splits a canvas of the given size into cols x rows zones
func NewZones(size image.Point, cols, rows int) Zones {
	if cols < 1 || rows < 1 {
		return nil
	}

	zones := make(Zones, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			zones = append(zones, Zone{
				Number: i%len(zoneColors) + 1,
				Rect: image.Rect(
					c*size.X/cols, r*size.Y/rows,
					(c+1)*size.X/cols, (r+1)*size.Y/rows,
				),
				Target: zoneColors[i%len(zoneColors)],
			})
		}
	}
	return zones
}

// Legend describes which pencil color each zone number expects
func (z Zones) Legend() string {
	legend := ""
	for i, c := range zoneColors {
		if i > 0 {
			legend += ", "
		}
		legend += fmt.Sprintf("%d=%s", i+1, ColorName(c))
	}
	return legend
}

// DrawOverlay outlines and numbers the zones on a display image
func (z Zones) DrawOverlay(img *gocv.Mat) {
	for _, zone := range z {
		gocv.Rectangle(img, zone.Rect, zoneOutline, 1)
		gocv.PutText(img, fmt.Sprint(zone.Number), zone.Rect.Min.Add(image.Pt(10, 30)),
			gocv.FontHersheySimplex, 1.0, zoneOutline, 2)
	}
}

// ZoneScore is how well one zone was painted
type ZoneScore struct {
	Number   int     `json:"number"`
	Painted  int     `json:"painted"` // Non-white pixels
	Correct  int     `json:"correct"` // Pixels in the target color
	Area     int     `json:"area"`
	Accuracy float64 `json:"accuracy"` // Correct / Painted
	Coverage float64 `json:"coverage"` // Correct / Area
}

// Score is the paint-by-numbers result of a whole canvas
type Score struct {
	Zones    []ZoneScore `json:"zones"`
	Accuracy float64     `json:"accuracy"`
	Coverage float64     `json:"coverage"`
}

// Score compares the painted canvas with each zone's target color
func (z Zones) Score(img image.Image) Score {
	var score Score
	var painted, correct, area int

	for _, zone := range z {
		zs := ZoneScore{Number: zone.Number}
		rect := zone.Rect.Intersect(img.Bounds())
		zs.Area = rect.Dx() * rect.Dy()

		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				px := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
				px.A = 255
				if px == White {
					continue
				}
				zs.Painted++
				if px == zone.Target {
					zs.Correct++
				}
			}
		}

		zs.Accuracy = ratio(zs.Correct, zs.Painted)
		zs.Coverage = ratio(zs.Correct, zs.Area)
		score.Zones = append(score.Zones, zs)

		painted += zs.Painted
		correct += zs.Correct
		area += zs.Area
	}

	score.Accuracy = ratio(correct, painted)
	score.Coverage = ratio(correct, area)
	return score
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

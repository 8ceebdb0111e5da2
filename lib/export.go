package lib

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf"
)

const pdfMargin = 10.0 // mm

// ExportPDF places a PNG drawing of the given pixel size on an A4 landscape page
func ExportPDF(path string, png []byte, size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return errors.New("cannot export an empty drawing")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("drawing", opts, bytes.NewReader(png))

	pageW, pageH := pdf.GetPageSize()
	w, h := fitInto(float64(size.X), float64(size.Y), pageW-2*pdfMargin, pageH-2*pdfMargin)
	x := (pageW - w) / 2
	y := (pageH - h) / 2

	pdf.ImageOptions("drawing", x, y, w, h, false, opts, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf %s: %w", path, err)
	}
	return nil
}

// fitInto scales w x h to the largest size inside maxW x maxH keeping the aspect ratio
func fitInto(w, h, maxW, maxH float64) (float64, float64) {
	scale := min(maxW/w, maxH/h)
	return w * scale, h * scale
}

// Package render draws detection boxes onto images and writes the annotated copies.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/esimov/yolodet/utils"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// JPEGQuality is the quality used for annotated images.
const JPEGQuality = 95

// Label is one box to draw.
type Label struct {
	Rect    image.Rectangle
	ClassID int
	Text    string
}

// palette holds the box colors, picked by class id.
var palette = []color.NRGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// Color returns the box color used for a class id.
func Color(classID int) color.NRGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Annotate returns a copy of img with every label drawn on it. The source image is left untouched.
func Annotate(img image.Image, labels []Label) *image.NRGBA {
	dst := imaging.Clone(img)
	bounds := dst.Bounds()
	thickness := utils.Max(2, utils.Min(bounds.Dx(), bounds.Dy())/300)

	for _, l := range labels {
		r := l.Rect.Intersect(bounds)
		if r.Empty() {
			continue
		}
		col := Color(l.ClassID)
		strokeRect(dst, r, thickness, col)
		if l.Text != "" {
			drawCaption(dst, r, l.Text, col)
		}
	}
	return dst
}

// strokeRect draws the outline of r, growing inward by t pixels.
func strokeRect(dst draw.Image, r image.Rectangle, t int, col color.Color) {
	src := image.NewUniform(col)
	t = utils.Min(t, utils.Min(r.Dx(), r.Dy())/2+1)

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// drawCaption writes text on a filled band above the box, or inside its top
// edge when the box touches the top of the image.
func drawCaption(dst draw.Image, r image.Rectangle, text string, bg color.NRGBA) {
	face := basicfont.Face7x13
	bounds := dst.Bounds()

	d := &font.Drawer{Face: face}
	textW := d.MeasureString(text).Ceil()
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()
	const pad = 2

	band := image.Rect(r.Min.X, r.Min.Y-textH-2*pad, r.Min.X+textW+2*pad, r.Min.Y)
	if band.Min.Y < bounds.Min.Y {
		band = band.Add(image.Pt(0, r.Min.Y-band.Min.Y))
	}
	if band.Max.X > bounds.Max.X {
		band = band.Sub(image.Pt(band.Max.X-bounds.Max.X, 0))
	}
	band = band.Intersect(bounds)
	if band.Empty() {
		return
	}
	draw.Draw(dst, band, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dst = dst
	d.Src = image.NewUniform(textColor(bg))
	d.Dot = fixed.Point26_6{
		X: fixed.I(band.Min.X + pad),
		Y: fixed.I(band.Min.Y+pad) + m.Ascent,
	}
	d.DrawString(text)
}

// textColor picks black or white for readability on bg.
func textColor(bg color.NRGBA) color.Color {
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 150 {
		return color.Black
	}
	return color.White
}

// Save writes img as a JPEG to path, creating the parent directory when needed.
func Save(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("unable to create the output directory: %w", err)
		}
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return fmt.Errorf("unable to save the annotated image: %w", err)
	}
	return nil
}

// Package testdata provides synthetic frame builders for detection tests.
// Frames are plain BGR Mats with flat-colored marker blobs drawn on a
// dark low-saturation background, standing in for captured minimap crops.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Marker colors used across tests, with their HSV equivalents
// (H in degrees, S/V 0..255) for picking profile windows.
var (
	// Yellow ~ HSV(51, 233, 230)
	Yellow = color.RGBA{R: 230, G: 200, B: 20, A: 255}
	// Red ~ HSV(0, 209, 220)
	Red = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	// Cyan ~ HSV(180, 209, 220)
	Cyan = color.RGBA{R: 40, G: 220, B: 220, A: 255}
	// Background is a dark, low-saturation gray no marker window accepts.
	Background = color.RGBA{R: 44, G: 44, B: 48, A: 255}
)

// NewFrame returns a width×height BGR frame filled with the given color.
// The caller must close the returned Mat.
func NewFrame(width, height int, c color.RGBA) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&mat, image.Rect(0, 0, width, height), c, -1)
	return mat
}

// DrawBlock draws a filled w×h rectangle with its top-left at (x, y).
func DrawBlock(mat *gocv.Mat, x, y, w, h int, c color.RGBA) {
	gocv.Rectangle(mat, image.Rect(x, y, x+w, y+h), c, -1)
}

// DrawDisc draws a filled circle centered at (x, y).
func DrawDisc(mat *gocv.Mat, x, y, radius int, c color.RGBA) {
	gocv.Circle(mat, image.Pt(x, y), radius, c, -1)
}

package detector

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// ErrOutOfBounds is returned when a region rectangle exceeds the frame
// dimensions. Regions are validated against the capture resolution at
// configuration time, so hitting this mid-run indicates a stale config.
var ErrOutOfBounds = errors.New("region out of frame bounds")

// Region is the geometry of a minimap rectangle within the full frame.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Valid reports whether the region has a usable geometry on its own
// (bounds against a frame are checked by CropRegion).
func (r Region) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0
}

// CropRegion extracts the region sub-image from a full frame. The
// returned Mat is a view into frame; the caller must close it and must
// keep frame alive while using it.
func CropRegion(frame *gocv.Mat, r Region) (gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return gocv.Mat{}, ErrOutOfBounds
	}
	if !r.Valid() {
		return gocv.Mat{}, ErrOutOfBounds
	}
	if r.X+r.Width > frame.Cols() || r.Y+r.Height > frame.Rows() {
		return gocv.Mat{}, ErrOutOfBounds
	}
	return frame.Region(r.Rect()), nil
}

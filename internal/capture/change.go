package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ChangeDetector detects whether the minimap crop changed between
// consecutive frames, using grayscale frame differencing. The pipeline
// uses it to drop to an idle rate while the minimap is static (menus,
// loading screens, the player standing still with no one nearby).
type ChangeDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

const (
	// changeBlurSize is the Gaussian kernel for noise suppression. The
	// crop is small, so a light blur is enough.
	changeBlurSize = 5
	// changeDiffThreshold is the per-pixel binary threshold on the
	// grayscale difference.
	changeDiffThreshold = 25
)

// NewChangeDetector creates a ChangeDetector. The threshold is the
// percentage of crop pixels that must differ to count as a change.
func NewChangeDetector(threshold float64) *ChangeDetector {
	return &ChangeDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares the crop with the previous one. Returns whether it
// changed and the percentage of differing pixels. The first crop seeds
// the baseline and reports no change.
func (d *ChangeDetector) Detect(crop *gocv.Mat) (bool, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if crop == nil || crop.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if crop.Channels() > 1 {
		gocv.CvtColor(*crop, &gray, gocv.ColorBGRToGray)
	} else {
		crop.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(changeBlurSize, changeBlurSize), 0, 0, gocv.BorderDefault)

	if !d.initialized {
		blurred.CopyTo(&d.prevGray)
		d.initialized = true
		return false, 0
	}

	// A resized crop (region edited at runtime) resets the baseline.
	if blurred.Rows() != d.prevGray.Rows() || blurred.Cols() != d.prevGray.Cols() {
		blurred.CopyTo(&d.prevGray)
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, d.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, changeDiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	total := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(total) * 100.0

	blurred.CopyTo(&d.prevGray)

	return changePercent > d.threshold, changePercent
}

// Reset clears the baseline so the next crop seeds a fresh one.
func (d *ChangeDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.prevGray.Empty() {
		d.prevGray.Close()
		d.prevGray = gocv.NewMat()
	}
	d.initialized = false
}

// Close releases the detector's resources.
func (d *ChangeDetector) Close() {
	d.Reset()
}

// SetThreshold updates the change threshold. Values <= 0 are ignored.
func (d *ChangeDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

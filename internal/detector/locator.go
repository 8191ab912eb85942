package detector

import (
	"math"
	"time"

	"gocv.io/x/gocv"
)

// Config holds tuning parameters for the marker locator.
type Config struct {
	// AreaNorm is the multiple of a profile's MinArea at which the area
	// component of the confidence score saturates to 1.0. With the
	// default of 2, a blob twice the minimum area scores full marks on
	// area; a typical marker dot lands around 0.9.
	AreaNorm float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{AreaNorm: 2.0}
}

// Locator finds marker positions in a cropped minimap image. It holds no
// mutable state between calls, so concurrent detection with independent
// inputs is safe.
type Locator struct {
	config Config
}

// NewLocator creates a Locator with the given configuration.
func NewLocator(config Config) *Locator {
	if config.AreaNorm <= 0 {
		config.AreaNorm = DefaultConfig().AreaNorm
	}
	return &Locator{config: config}
}

// blob is one connected region of in-class pixels.
type blob struct {
	area       int
	cx, cy     float64
	boxW, boxH int
}

// Detect runs one detection pass over an already-cropped BGR image.
// The crop is converted to HSV once and masked once per class. A profile
// that fails validation degrades its own class to "not detected" without
// affecting the other class.
func (l *Locator) Detect(crop *gocv.Mat, region Region, set ProfileSet) DetectionResult {
	now := time.Now().UnixMilli()
	if crop == nil || crop.Empty() {
		return notDetected(region, now)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(*crop, &hsv, gocv.ColorBGRToHSV)

	perClass := make(map[MarkerClass]ClassDetection, len(Classes))
	for _, class := range Classes {
		perClass[class] = l.detectClass(&hsv, set.Get(class))
	}

	return DetectionResult{
		PerClass:  perClass,
		Region:    region,
		Timestamp: now,
	}
}

// DetectFrame crops the region out of a full frame and runs Detect. A
// frame that fails to crop yields an all-classes "not detected" result
// rather than an error, so one bad frame never halts the pipeline.
func (l *Locator) DetectFrame(frame *gocv.Mat, region Region, set ProfileSet) DetectionResult {
	crop, err := CropRegion(frame, region)
	if err != nil {
		return notDetected(region, time.Now().UnixMilli())
	}
	defer crop.Close()
	return l.Detect(&crop, region, set)
}

// detectClass masks the HSV crop with one profile and reduces the
// surviving blobs to a single position and confidence.
func (l *Locator) detectClass(hsv *gocv.Mat, p ColorProfile) ClassDetection {
	if err := p.Validate(); err != nil {
		return ClassDetection{}
	}

	mask := gocv.NewMat()
	defer mask.Close()
	maskProfile(hsv, p, &mask)

	blobs := findBlobs(&mask, p.MinArea)
	if len(blobs) == 0 {
		return ClassDetection{}
	}

	best := selectBlob(blobs)
	return ClassDetection{
		Detected:   true,
		X:          int(math.Round(best.cx)),
		Y:          int(math.Round(best.cy)),
		Confidence: l.confidence(best, p.MinArea),
	}
}

// maskProfile builds the binary in-class mask for one profile. Hue wrap
// is handled as two range tests OR-ed together, since OpenCV's InRange
// cannot express a circular interval.
func maskProfile(hsv *gocv.Mat, p ColorProfile, dst *gocv.Mat) {
	// OpenCV 8-bit hue is 0..179; profile hue is in degrees. Lower
	// bounds round down and upper bounds round up so halving never
	// narrows the window.
	hLow := float64(p.Lower.H / 2)
	hHigh := float64((p.Upper.H + 1) / 2)
	sLow, sHigh := float64(p.Lower.S), float64(p.Upper.S)
	vLow, vHigh := float64(p.Lower.V), float64(p.Upper.V)

	if !p.WrapsHue() {
		gocv.InRangeWithScalar(*hsv,
			gocv.NewScalar(hLow, sLow, vLow, 0),
			gocv.NewScalar(hHigh, sHigh, vHigh, 0),
			dst)
		return
	}

	// Wrapped window: [lower..179] plus [0..upper].
	high := gocv.NewMat()
	defer high.Close()
	gocv.InRangeWithScalar(*hsv,
		gocv.NewScalar(hLow, sLow, vLow, 0),
		gocv.NewScalar(179, sHigh, vHigh, 0),
		&high)

	low := gocv.NewMat()
	defer low.Close()
	gocv.InRangeWithScalar(*hsv,
		gocv.NewScalar(0, sLow, vLow, 0),
		gocv.NewScalar(hHigh, sHigh, vHigh, 0),
		&low)

	gocv.BitwiseOr(high, low, dst)
}

// findBlobs labels 8-connected regions in the mask and returns those at
// or above minArea. Work is bounded by the crop's pixel count.
func findBlobs(mask *gocv.Mat, minArea int) []blob {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	count := gocv.ConnectedComponentsWithStats(*mask, &labels, &stats, &centroids)

	// Label 0 is the background.
	blobs := make([]blob, 0, count-1)
	for i := 1; i < count; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area < minArea {
			continue
		}
		blobs = append(blobs, blob{
			area: area,
			cx:   centroids.GetDoubleAt(i, 0),
			cy:   centroids.GetDoubleAt(i, 1),
			boxW: int(stats.GetIntAt(i, int(gocv.CCStatWidth))),
			boxH: int(stats.GetIntAt(i, int(gocv.CCStatHeight))),
		})
	}
	return blobs
}

// selectBlob picks the primary candidate: largest area, ties broken by
// smaller centroid y, then smaller centroid x. The result is independent
// of label enumeration order.
func selectBlob(blobs []blob) blob {
	best := blobs[0]
	for _, b := range blobs[1:] {
		if b.area > best.area {
			best = b
			continue
		}
		if b.area == best.area {
			if b.cy < best.cy || (b.cy == best.cy && b.cx < best.cx) {
				best = b
			}
		}
	}
	return best
}

// confidence scores a detected blob in [0,1]. The area term grows
// linearly until AreaNorm times the minimum area; the shape term rewards
// blobs close to a filled circle and penalizes elongated noise. Both
// terms are positive for any surviving blob, so a detection never scores
// exactly zero.
func (l *Locator) confidence(b blob, minArea int) float64 {
	areaScore := float64(b.area) / (float64(minArea) * l.config.AreaNorm)
	if areaScore > 1 {
		areaScore = 1
	}

	fill := float64(b.area) / float64(b.boxW*b.boxH)
	// A filled circle occupies pi/4 of its bounding box.
	roundness := fill / (math.Pi / 4)
	if roundness > 1 {
		roundness = 1
	}

	aspect := float64(b.boxW) / float64(b.boxH)
	if aspect > 1 {
		aspect = 1 / aspect
	}

	return areaScore * roundness * aspect
}

package detector

import "math"

// HSVFromBGR converts a single BGR pixel to HSV using the same convention
// as OpenCV's full-image conversion (V = max channel, S scaled to 0..255)
// but with hue kept in full degrees. Calibration samples individual
// pixels with this, so its output must agree with the mask built from
// CvtColor within rounding.
func HSVFromBGR(b, g, r uint8) HSV {
	bf := float64(b)
	gf := float64(g)
	rf := float64(r)

	maxC := math.Max(rf, math.Max(gf, bf))
	minC := math.Min(rf, math.Min(gf, bf))
	delta := maxC - minC

	v := maxC

	var s float64
	if maxC > 0 {
		s = 255 * delta / maxC
	}

	var h float64
	if delta > 0 {
		switch maxC {
		case rf:
			h = 60 * (gf - bf) / delta
		case gf:
			h = 120 + 60*(bf-rf)/delta
		default:
			h = 240 + 60*(rf-gf)/delta
		}
		if h < 0 {
			h += 360
		}
	}

	hi := int(math.Round(h))
	if hi > MaxHue {
		hi -= 360
	}
	return HSV{
		H: hi,
		S: int(math.Round(s)),
		V: int(math.Round(v)),
	}
}

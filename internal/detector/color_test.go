package detector

import "testing"

func TestHSVFromBGR(t *testing.T) {
	tests := []struct {
		name    string
		b, g, r uint8
		want    HSV
	}{
		{"black", 0, 0, 0, HSV{H: 0, S: 0, V: 0}},
		{"white", 255, 255, 255, HSV{H: 0, S: 0, V: 255}},
		{"pure red", 0, 0, 255, HSV{H: 0, S: 255, V: 255}},
		{"pure green", 0, 255, 0, HSV{H: 120, S: 255, V: 255}},
		{"pure blue", 255, 0, 0, HSV{H: 240, S: 255, V: 255}},
		{"fixture yellow", 20, 200, 230, HSV{H: 51, S: 233, V: 230}},
		{"fixture red", 40, 40, 220, HSV{H: 0, S: 209, V: 220}},
		{"fixture cyan", 220, 220, 40, HSV{H: 180, S: 209, V: 220}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HSVFromBGR(tt.b, tt.g, tt.r)
			if got != tt.want {
				t.Errorf("HSVFromBGR(%d, %d, %d) = %+v, want %+v", tt.b, tt.g, tt.r, got, tt.want)
			}
		})
	}
}

func TestHSVFromBGR_HueNearWrap(t *testing.T) {
	// A red leaning toward magenta lands just below 360 and must stay in
	// the [0,359] range, not report 360.
	got := HSVFromBGR(60, 40, 220)
	if got.H < 350 || got.H > MaxHue {
		t.Errorf("expected hue in [350,%d], got %d", MaxHue, got.H)
	}
}

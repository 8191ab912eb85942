// Package detector provides color-based marker detection for minimap regions.
package detector

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidProfile is returned when a color profile has malformed bounds
// or a non-positive minimum area. It is raised at load/commit time only.
var ErrInvalidProfile = errors.New("invalid color profile")

// MarkerClass identifies which marker a profile detects.
type MarkerClass string

const (
	// ClassPlayer is the player's own marker on the minimap.
	ClassPlayer MarkerClass = "player"
	// ClassOther covers markers of other players.
	ClassOther MarkerClass = "other"
)

// Classes lists all marker classes in a stable order.
var Classes = []MarkerClass{ClassPlayer, ClassOther}

// Valid reports whether c is a known marker class.
func (c MarkerClass) Valid() bool {
	return c == ClassPlayer || c == ClassOther
}

// HSV is a color in HSV space. H is in degrees [0,360), S and V in [0,255].
type HSV struct {
	H int `json:"h"`
	S int `json:"s"`
	V int `json:"v"`
}

// Channel ranges for HSV values.
const (
	MaxHue = 359
	MaxSat = 255
	MaxVal = 255
)

// ColorProfile is the acceptance window for one marker class.
// The hue window is circular: if Lower.H > Upper.H the window wraps
// through 0 (e.g. 350..10 accepts 355 and 5 but not 180).
type ColorProfile struct {
	Label   MarkerClass `json:"label"`
	Lower   HSV         `json:"lower"`
	Upper   HSV         `json:"upper"`
	MinArea int         `json:"min_area"`
}

// Validate checks the profile invariants: S and V bounds must be ordered
// and within range, hue bounds within [0,359], and MinArea positive.
func (p ColorProfile) Validate() error {
	if !p.Label.Valid() {
		return fmt.Errorf("%w: unknown label %q", ErrInvalidProfile, p.Label)
	}
	if p.MinArea <= 0 {
		return fmt.Errorf("%w: min_area must be positive, got %d", ErrInvalidProfile, p.MinArea)
	}
	if p.Lower.H < 0 || p.Lower.H > MaxHue || p.Upper.H < 0 || p.Upper.H > MaxHue {
		return fmt.Errorf("%w: hue bounds out of range [0,%d]", ErrInvalidProfile, MaxHue)
	}
	if p.Lower.S < 0 || p.Upper.S > MaxSat || p.Lower.S > p.Upper.S {
		return fmt.Errorf("%w: saturation bounds malformed", ErrInvalidProfile)
	}
	if p.Lower.V < 0 || p.Upper.V > MaxVal || p.Lower.V > p.Upper.V {
		return fmt.Errorf("%w: value bounds malformed", ErrInvalidProfile)
	}
	return nil
}

// WrapsHue reports whether the hue window passes through 0.
func (p ColorProfile) WrapsHue() bool {
	return p.Lower.H > p.Upper.H
}

// Contains reports whether c falls inside the acceptance window.
// Hue membership is a circular-interval test.
func (p ColorProfile) Contains(c HSV) bool {
	if c.S < p.Lower.S || c.S > p.Upper.S {
		return false
	}
	if c.V < p.Lower.V || c.V > p.Upper.V {
		return false
	}
	if p.WrapsHue() {
		return c.H >= p.Lower.H || c.H <= p.Upper.H
	}
	return c.H >= p.Lower.H && c.H <= p.Upper.H
}

// ProfileSet holds the profile for every marker class. It is passed by
// value into each detection call and never mutated in place.
type ProfileSet struct {
	Player ColorProfile `json:"player"`
	Other  ColorProfile `json:"other"`
}

// Get returns the profile for the given class.
func (s ProfileSet) Get(class MarkerClass) ColorProfile {
	if class == ClassOther {
		return s.Other
	}
	return s.Player
}

// With returns a copy of the set with the profile for p.Label replaced.
func (s ProfileSet) With(p ColorProfile) ProfileSet {
	switch p.Label {
	case ClassOther:
		s.Other = p
	default:
		s.Player = p
	}
	return s
}

// DefaultProfiles returns the factory calibration: a yellow window for the
// player marker and a red (hue-wrapping) window for other players.
func DefaultProfiles() ProfileSet {
	return ProfileSet{
		Player: ColorProfile{
			Label:   ClassPlayer,
			Lower:   HSV{H: 40, S: 150, V: 150},
			Upper:   HSV{H: 70, S: 255, V: 255},
			MinArea: 12,
		},
		Other: ColorProfile{
			Label:   ClassOther,
			Lower:   HSV{H: 345, S: 120, V: 120},
			Upper:   HSV{H: 15, S: 255, V: 255},
			MinArea: 12,
		},
	}
}

// Profiles is the shared holder for the active profile set. A committed
// calibration replaces the whole set in one swap, so a concurrent
// detection call sees either the old set or the new one, never a mix.
type Profiles struct {
	mu      sync.RWMutex
	current ProfileSet
}

// NewProfiles creates a holder seeded with the given set.
func NewProfiles(set ProfileSet) *Profiles {
	return &Profiles{current: set}
}

// Current returns a copy of the active profile set.
func (p *Profiles) Current() ProfileSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Swap replaces the entire active set.
func (p *Profiles) Swap(set ProfileSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = set
}

// SwapClass replaces the profile for prof.Label, leaving the other class
// untouched. The replacement is all-or-nothing.
func (p *Profiles) SwapClass(prof ColorProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.current.With(prof)
}

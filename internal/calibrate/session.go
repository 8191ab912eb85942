// Package calibrate implements the interactive procedure that derives a
// color profile from operator-supplied pixel samples.
package calibrate

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/maptracker/internal/detector"
)

var (
	// ErrInsufficientSamples is returned by Fit when no samples have been
	// collected. The session stays in the collecting state.
	ErrInsufficientSamples = errors.New("no samples collected")
	// ErrInsufficientData is returned when a sample pixel cannot be read
	// from the supplied frame.
	ErrInsufficientData = errors.New("cannot sample pixel from frame")
	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("operation not allowed in current session state")
)

// State is a calibration session lifecycle state.
type State string

const (
	// StateCollecting accepts operator samples.
	StateCollecting State = "collecting"
	// StateFitting holds a computed profile awaiting commit.
	StateFitting State = "fitting"
	// StateCommitted is the terminal success state.
	StateCommitted State = "committed"
	// StateCancelled is the terminal discard state.
	StateCancelled State = "cancelled"
)

// Fixed widening margins applied to the fitted bounds per channel, so the
// window survives re-encoding noise around the sampled colors.
const (
	HueMargin = 10
	SatMargin = 30
	ValMargin = 30
)

// Sample is one operator click: the picked pixel and its sampled color.
type Sample struct {
	Pixel image.Point  `json:"pixel"`
	Color detector.HSV `json:"color"`
}

// Session accumulates samples for one marker class and fits a color
// profile from them. Sessions are transient: they end in Committed or
// Cancelled and are then discarded by the Manager.
type Session struct {
	ID    string
	Label detector.MarkerClass

	mu      sync.Mutex
	state   State
	samples []Sample
	minArea int
	fitted  detector.ColorProfile
}

// newSession creates a collecting session. The minimum area is inherited
// from the profile currently active for the label.
func newSession(id string, label detector.MarkerClass, minArea int) *Session {
	return &Session{
		ID:      id,
		Label:   label,
		state:   StateCollecting,
		minArea: minArea,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Samples returns a copy of the collected samples in pick order.
func (s *Session) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// AddSample reads the color under pixel in the given BGR frame and
// appends it to the session. Returns ErrInsufficientData when the frame
// is unusable or the pixel lies outside it.
func (s *Session) AddSample(pixel image.Point, frame *gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollecting {
		return fmt.Errorf("%w: state is %s", ErrInvalidState, s.state)
	}
	if frame == nil || frame.Empty() {
		return fmt.Errorf("%w: no frame available", ErrInsufficientData)
	}
	if pixel.X < 0 || pixel.Y < 0 || pixel.X >= frame.Cols() || pixel.Y >= frame.Rows() {
		return fmt.Errorf("%w: pixel (%d,%d) outside %dx%d frame",
			ErrInsufficientData, pixel.X, pixel.Y, frame.Cols(), frame.Rows())
	}

	bgr := frame.GetVecbAt(pixel.Y, pixel.X)
	s.samples = append(s.samples, Sample{
		Pixel: pixel,
		Color: detector.HSVFromBGR(bgr[0], bgr[1], bgr[2]),
	})
	return nil
}

// Fit computes the acceptance window from the collected samples: the
// componentwise min/max of the sampled colors, widened by the fixed
// margins and clamped to each channel's range. With zero samples it
// returns ErrInsufficientSamples and the session keeps collecting.
func (s *Session) Fit() (detector.ColorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollecting && s.state != StateFitting {
		return detector.ColorProfile{}, fmt.Errorf("%w: state is %s", ErrInvalidState, s.state)
	}
	if len(s.samples) == 0 {
		return detector.ColorProfile{}, ErrInsufficientSamples
	}

	lower := s.samples[0].Color
	upper := s.samples[0].Color
	for _, sample := range s.samples[1:] {
		c := sample.Color
		lower.H = min(lower.H, c.H)
		lower.S = min(lower.S, c.S)
		lower.V = min(lower.V, c.V)
		upper.H = max(upper.H, c.H)
		upper.S = max(upper.S, c.S)
		upper.V = max(upper.V, c.V)
	}

	s.fitted = detector.ColorProfile{
		Label: s.Label,
		Lower: detector.HSV{
			H: max(lower.H-HueMargin, 0),
			S: max(lower.S-SatMargin, 0),
			V: max(lower.V-ValMargin, 0),
		},
		Upper: detector.HSV{
			H: min(upper.H+HueMargin, detector.MaxHue),
			S: min(upper.S+SatMargin, detector.MaxSat),
			V: min(upper.V+ValMargin, detector.MaxVal),
		},
		MinArea: s.minArea,
	}
	s.state = StateFitting
	return s.fitted, nil
}

// SetMinArea overrides the minimum blob area carried into the fitted
// profile. Values less than or equal to 0 are rejected.
func (s *Session) SetMinArea(area int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCollecting && s.state != StateFitting {
		return fmt.Errorf("%w: state is %s", ErrInvalidState, s.state)
	}
	if area <= 0 {
		return fmt.Errorf("%w: min_area must be positive", detector.ErrInvalidProfile)
	}
	s.minArea = area
	s.fitted.MinArea = area
	return nil
}

// commit finalizes the session and returns the fitted profile. Only
// valid from the fitting state.
func (s *Session) commit() (detector.ColorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFitting {
		return detector.ColorProfile{}, fmt.Errorf("%w: state is %s", ErrInvalidState, s.state)
	}
	if err := s.fitted.Validate(); err != nil {
		return detector.ColorProfile{}, err
	}
	s.state = StateCommitted
	return s.fitted, nil
}

// cancel discards the session and its samples. The previously active
// profile is untouched. Cancelling a terminal session is an error.
func (s *Session) cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCommitted || s.state == StateCancelled {
		return fmt.Errorf("%w: state is %s", ErrInvalidState, s.state)
	}
	s.state = StateCancelled
	s.samples = nil
	return nil
}

// Package capture provides frame acquisition from video devices using
// GoCV (OpenCV). On the target hardware the device is typically a USB
// HDMI capture dongle carrying the game's video output.
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings. 720p at a modest rate keeps the per-frame
// budget on single-board computers.
const (
	DefaultFPS    = 10
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// ErrSourceNotOpen is returned when reading from a source that is not open.
var ErrSourceNotOpen = errors.New("capture source is not open")

// Source is a sequence of BGR frames from a capture device.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the returned Mat
	// and must close it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// videoSource reads frames from a V4L2 device via GoCV.
type videoSource struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
	width    int
	height   int
}

// NewSource creates a Source for the given capture device ID.
func NewSource(deviceID int) Source {
	return &videoSource{
		deviceID: deviceID,
		fps:      DefaultFPS,
		width:    DefaultWidth,
		height:   DefaultHeight,
	}
}

// Open opens the device and applies the configured resolution and rate.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return err
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(s.height))
	capture.Set(gocv.VideoCaptureFPS, float64(s.fps))

	s.capture = capture
	s.running = true
	return nil
}

// Close releases the device.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false
	return err
}

// ReadFrame grabs one frame from the device.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from device")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}
	return &mat, nil
}

// SetFPS adjusts the capture rate. Values <= 0 are ignored.
func (s *videoSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fps = fps
	if s.capture != nil {
		s.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate setting.
func (s *videoSource) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// IsOpen reports whether the device is open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

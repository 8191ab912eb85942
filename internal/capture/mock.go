package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back a fixed frame sequence for tests and for running
// the pipeline without a capture device attached.
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	fps     int
}

// NewMockSource creates a MockSource over the given frames. When loop is
// true playback restarts from the first frame after the last.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// ReadFrame returns a clone of the next frame so callers may close it
// without touching the originals.
func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}
	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, fmt.Errorf("no more frames")
		}
		s.index = 0
	}

	frame := s.frames[s.index].Clone()
	s.index++
	return &frame, nil
}

func (s *MockSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

func (s *MockSource) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetFrames replaces the playback sequence and rewinds.
func (s *MockSource) SetFrames(frames []*gocv.Mat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

// Reset restarts playback from the beginning.
func (s *MockSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = 0
}

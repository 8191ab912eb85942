package calibrate

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/maptracker/internal/detector"
)

var (
	// ErrSessionNotFound is returned when a handle does not refer to a
	// live session.
	ErrSessionNotFound = errors.New("calibration session not found")
	// ErrSessionActive is returned when starting a session for a class
	// that already has one in progress.
	ErrSessionActive = errors.New("calibration already in progress for this class")
)

// CommitFunc is invoked after a committed profile has been swapped in,
// typically to persist it.
type CommitFunc func(detector.ColorProfile) error

// Manager owns the live calibration sessions and performs the atomic
// profile swap on commit. At most one session per marker class runs at a
// time; sessions are addressed by opaque uuid handles.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byLabel  map[detector.MarkerClass]string
	profiles *detector.Profiles
	onCommit CommitFunc
}

// NewManager creates a Manager swapping committed profiles into the
// given holder.
func NewManager(profiles *detector.Profiles) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byLabel:  make(map[detector.MarkerClass]string),
		profiles: profiles,
	}
}

// OnCommit registers a callback invoked after each successful commit.
func (m *Manager) OnCommit(fn CommitFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCommit = fn
}

// Start opens a new collecting session for the given marker class and
// returns its handle.
func (m *Manager) Start(label detector.MarkerClass) (*Session, error) {
	if !label.Valid() {
		return nil, fmt.Errorf("%w: unknown label %q", detector.ErrInvalidProfile, label)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byLabel[label]; exists {
		return nil, ErrSessionActive
	}

	id := uuid.NewString()
	session := newSession(id, label, m.profiles.Current().Get(label).MinArea)
	m.sessions[id] = session
	m.byLabel[label] = id
	return session, nil
}

// Get returns the live session for the given handle.
func (m *Manager) Get(handle string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[handle]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// AddSample appends an operator pick to the session.
func (m *Manager) AddSample(handle string, pixel image.Point, frame *gocv.Mat) error {
	session, err := m.Get(handle)
	if err != nil {
		return err
	}
	return session.AddSample(pixel, frame)
}

// Fit computes the profile from the session's samples.
func (m *Manager) Fit(handle string) (detector.ColorProfile, error) {
	session, err := m.Get(handle)
	if err != nil {
		return detector.ColorProfile{}, err
	}
	return session.Fit()
}

// SetMinArea overrides the minimum blob area for the session's profile.
func (m *Manager) SetMinArea(handle string, area int) error {
	session, err := m.Get(handle)
	if err != nil {
		return err
	}
	return session.SetMinArea(area)
}

// Commit finalizes the session and swaps the fitted profile into the
// active set. The swap replaces the whole profile set at once, so no
// concurrent detection observes a partially-updated profile. The session
// is destroyed on success.
func (m *Manager) Commit(handle string) (detector.ColorProfile, error) {
	session, err := m.Get(handle)
	if err != nil {
		return detector.ColorProfile{}, err
	}

	profile, err := session.commit()
	if err != nil {
		return detector.ColorProfile{}, err
	}

	m.profiles.SwapClass(profile)
	m.remove(session)

	m.mu.Lock()
	onCommit := m.onCommit
	m.mu.Unlock()
	if onCommit != nil {
		if err := onCommit(profile); err != nil {
			return profile, fmt.Errorf("profile committed but not persisted: %w", err)
		}
	}
	return profile, nil
}

// Cancel discards the session. The active profile set is untouched.
func (m *Manager) Cancel(handle string) error {
	session, err := m.Get(handle)
	if err != nil {
		return err
	}
	if err := session.cancel(); err != nil {
		return err
	}
	m.remove(session)
	return nil
}

func (m *Manager) remove(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, session.ID)
	if m.byLabel[session.Label] == session.ID {
		delete(m.byLabel, session.Label)
	}
}

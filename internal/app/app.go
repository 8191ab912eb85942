// Package app wires capture, detection, calibration, and persistence
// into the minimap tracking pipeline.
package app

import (
	"errors"
	"log"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/maptracker/internal/calibrate"
	"github.com/ayusman/maptracker/internal/capture"
	"github.com/ayusman/maptracker/internal/detector"
	"github.com/ayusman/maptracker/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while the minimap is static.
	IdleFPS = 2
	// ActiveFPS is the frame rate while the minimap is changing.
	ActiveFPS = 15
	// IdleTimeoutMs is how long the minimap must stay static before the
	// pipeline drops back to the idle rate.
	IdleTimeoutMs = 3000
)

// ErrNoFrame is returned when no frame has been captured yet.
var ErrNoFrame = errors.New("no frame captured yet")

// settingEnabled is the settings key for the persisted detection switch.
const settingEnabled = "detection.enabled"

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	DeviceID     int
	ChangeThresh float64
}

// ResultFunc receives every detection result the pipeline produces.
type ResultFunc func(detector.DetectionResult)

// App orchestrates the capture → crop → locate → publish cycle and owns
// the shared pieces the HTTP layer talks to: the active region, the
// profile holder, and the calibration manager.
type App struct {
	config   Config
	source   capture.Source
	change   *capture.ChangeDetector
	locator  *detector.Locator
	profiles *detector.Profiles
	calib    *calibrate.Manager

	mu        sync.RWMutex
	enabled   bool
	region    detector.Region
	hasRegion bool
	lastFrame gocv.Mat
	hasFrame  bool
	latest    detector.DetectionResult
	hasResult bool
	onResult  []ResultFunc
	stopCh    chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	changeThreshold := config.ChangeThresh
	if changeThreshold <= 0 {
		changeThreshold = 0.5 // Default: 0.5% of crop pixels changed
	}

	profiles := detector.NewProfiles(detector.DefaultProfiles())

	a := &App{
		config:   config,
		source:   capture.NewSource(config.DeviceID),
		change:   capture.NewChangeDetector(changeThreshold),
		locator:  detector.NewLocator(detector.DefaultConfig()),
		profiles: profiles,
		calib:    calibrate.NewManager(profiles),
		enabled:  true,
	}

	// Committed calibrations are persisted immediately so they survive
	// a restart.
	if config.Store != nil {
		a.calib.OnCommit(func(p detector.ColorProfile) error {
			return config.Store.Profiles().Upsert(p)
		})
	}

	return a
}

// SetSource replaces the capture source. Used by tests and for running
// against recorded footage.
func (a *App) SetSource(src capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = src
}

// Profiles returns the shared active profile holder.
func (a *App) Profiles() *detector.Profiles {
	return a.profiles
}

// Calibration returns the calibration session manager.
func (a *App) Calibration() *calibrate.Manager {
	return a.calib
}

// SetEnabled enables or disables detection. Capture keeps running so
// calibration can still sample frames while detection is paused. The
// switch is persisted so it survives a restart.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(settingEnabled, strconv.FormatBool(enabled)); err != nil {
			log.Printf("Failed to persist detection switch: %v", err)
		}
	}
}

// IsEnabled returns whether detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetRegion installs the active minimap region. The change detector is
// reset since its baseline no longer matches.
func (a *App) SetRegion(r detector.Region) {
	a.mu.Lock()
	a.region = r
	a.hasRegion = true
	a.mu.Unlock()
	a.change.Reset()
}

// ClearRegion removes the active region; the pipeline idles until a new
// one is activated.
func (a *App) ClearRegion() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hasRegion = false
}

// Region returns the active region, and whether one is set.
func (a *App) Region() (detector.Region, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.region, a.hasRegion
}

// OnResult registers a callback invoked for every detection result.
// Callbacks run on the pipeline goroutine and must not block.
func (a *App) OnResult(fn ResultFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onResult = append(a.onResult, fn)
}

// LatestResult returns the most recent detection result, and whether
// one has been produced yet.
func (a *App) LatestResult() (detector.DetectionResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.hasResult
}

// LastFrame returns a clone of the most recently captured full frame,
// for calibration sampling and the preview stream. The caller must
// close the returned Mat.
func (a *App) LastFrame() (gocv.Mat, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.hasFrame {
		return gocv.Mat{}, ErrNoFrame
	}
	return a.lastFrame.Clone(), nil
}

// LoadConfig seeds default profiles, loads the stored profile set into
// the active holder, and restores the active region if one is saved.
func (a *App) LoadConfig() error {
	if a.config.Store == nil {
		return nil
	}

	if err := a.config.Store.Profiles().EnsureDefaults(detector.DefaultProfiles()); err != nil {
		return err
	}
	set, err := a.config.Store.Profiles().GetAll()
	if err != nil {
		return err
	}
	a.profiles.Swap(set)

	if value, err := a.config.Store.Settings().Get(settingEnabled); err == nil {
		if enabled, err := strconv.ParseBool(value); err == nil {
			a.mu.Lock()
			a.enabled = enabled
			a.mu.Unlock()
		}
	}

	region, err := a.config.Store.Regions().GetActive()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Println("No active region configured; detection idle until one is activated")
			return nil
		}
		return err
	}
	a.SetRegion(region.Geometry())
	return nil
}

// Start opens the capture source and launches the pipeline goroutine.
func (a *App) Start() error {
	a.mu.Lock()
	source := a.source
	if a.stopCh != nil {
		a.mu.Unlock()
		return nil
	}
	a.stopCh = make(chan struct{})
	stopCh := a.stopCh
	a.mu.Unlock()

	if err := source.Open(); err != nil {
		a.mu.Lock()
		a.stopCh = nil
		a.mu.Unlock()
		return err
	}

	go a.runPipeline(stopCh)
	return nil
}

// Stop halts the pipeline and releases the capture source.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
	if a.hasFrame {
		a.lastFrame.Close()
		a.hasFrame = false
	}
	source := a.source
	a.mu.Unlock()

	source.Close()
	a.change.Close()
}

// storeFrame retains a copy of the latest full frame for calibration
// sampling, releasing the previous one.
func (a *App) storeFrame(frame *gocv.Mat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasFrame {
		a.lastFrame.Close()
	}
	a.lastFrame = frame.Clone()
	a.hasFrame = true
}

// publish records the result and fans it out to the callbacks.
func (a *App) publish(result detector.DetectionResult) {
	a.mu.Lock()
	a.latest = result
	a.hasResult = true
	callbacks := a.onResult
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(result)
	}
}

package store

import (
	"errors"
	"testing"

	"github.com/ayusman/maptracker/internal/detector"
)

func TestProfileRepository_GetAll_Empty(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Profiles().GetAll(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with no stored profiles, got %v", err)
	}
}

func TestProfileRepository_EnsureDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := detector.DefaultProfiles()
	if err := s.Profiles().EnsureDefaults(defaults); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}

	set, err := s.Profiles().GetAll()
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if set != defaults {
		t.Errorf("loaded set %+v, want seeded defaults %+v", set, defaults)
	}
}

func TestProfileRepository_EnsureDefaults_KeepsCalibration(t *testing.T) {
	s := newTestStore(t)

	calibrated := detector.ColorProfile{
		Label:   detector.ClassPlayer,
		Lower:   detector.HSV{H: 45, S: 200, V: 200},
		Upper:   detector.HSV{H: 58, S: 255, V: 255},
		MinArea: 25,
	}
	if err := s.Profiles().Upsert(calibrated); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Seeding afterwards must not clobber the stored calibration.
	if err := s.Profiles().EnsureDefaults(detector.DefaultProfiles()); err != nil {
		t.Fatalf("EnsureDefaults() error = %v", err)
	}

	got, err := s.Profiles().Get(detector.ClassPlayer)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != calibrated {
		t.Errorf("calibration overwritten: got %+v, want %+v", got, calibrated)
	}
}

func TestProfileRepository_Upsert_Roundtrip(t *testing.T) {
	s := newTestStore(t)

	// A wrapped-hue window must survive storage untouched.
	p := detector.ColorProfile{
		Label:   detector.ClassOther,
		Lower:   detector.HSV{H: 350, S: 120, V: 120},
		Upper:   detector.HSV{H: 10, S: 255, V: 255},
		MinArea: 20,
	}
	if err := s.Profiles().Upsert(p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.Profiles().Get(detector.ClassOther)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != p {
		t.Errorf("roundtrip = %+v, want %+v", got, p)
	}
	if !got.WrapsHue() {
		t.Error("wrapped window lost its wrap through storage")
	}

	// Upsert replaces in place.
	p.MinArea = 40
	if err := s.Profiles().Upsert(p); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	got, err = s.Profiles().Get(detector.ClassOther)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.MinArea != 40 {
		t.Errorf("min_area = %d, want updated 40", got.MinArea)
	}
}

func TestProfileRepository_Upsert_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	bad := detector.ColorProfile{
		Label:   detector.ClassPlayer,
		Lower:   detector.HSV{H: 40, S: 200, V: 200},
		Upper:   detector.HSV{H: 60, S: 100, V: 255}, // S inverted
		MinArea: 20,
	}
	if err := s.Profiles().Upsert(bad); !errors.Is(err, detector.ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}

	// The malformed profile must not have reached a row.
	if _, err := s.Profiles().Get(detector.ClassPlayer); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

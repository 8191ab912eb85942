package capture

import (
	"testing"

	"github.com/ayusman/maptracker/testdata"
)

func TestChangeDetector_FirstCropSeedsBaseline(t *testing.T) {
	d := NewChangeDetector(1.0)
	defer d.Close()

	crop := testdata.NewFrame(340, 86, testdata.Background)
	defer crop.Close()

	changed, pct := d.Detect(&crop)
	if changed || pct != 0 {
		t.Errorf("first crop: changed=%v pct=%f, want no change", changed, pct)
	}
}

func TestChangeDetector_StaticCrop(t *testing.T) {
	d := NewChangeDetector(1.0)
	defer d.Close()

	crop := testdata.NewFrame(340, 86, testdata.Background)
	defer crop.Close()

	d.Detect(&crop)
	changed, pct := d.Detect(&crop)
	if changed {
		t.Errorf("identical crops: changed=true (%.2f%% differing)", pct)
	}
}

func TestChangeDetector_MarkerMoves(t *testing.T) {
	d := NewChangeDetector(0.1)
	defer d.Close()

	before := testdata.NewFrame(340, 86, testdata.Background)
	defer before.Close()
	testdata.DrawBlock(&before, 100, 40, 6, 6, testdata.Yellow)

	after := testdata.NewFrame(340, 86, testdata.Background)
	defer after.Close()
	testdata.DrawBlock(&after, 180, 40, 6, 6, testdata.Yellow)

	d.Detect(&before)
	changed, _ := d.Detect(&after)
	if !changed {
		t.Error("a moved marker should register as change")
	}
}

func TestChangeDetector_ResizedCropResets(t *testing.T) {
	d := NewChangeDetector(1.0)
	defer d.Close()

	small := testdata.NewFrame(100, 50, testdata.Background)
	defer small.Close()
	large := testdata.NewFrame(340, 86, testdata.Background)
	defer large.Close()

	d.Detect(&small)
	changed, _ := d.Detect(&large)
	if !changed {
		t.Error("a resized crop should report change and reseed the baseline")
	}

	// The baseline is now the large crop.
	changed, _ = d.Detect(&large)
	if changed {
		t.Error("identical crop after reseed should not report change")
	}
}

func TestChangeDetector_Reset(t *testing.T) {
	d := NewChangeDetector(1.0)
	defer d.Close()

	crop := testdata.NewFrame(100, 50, testdata.Yellow)
	defer crop.Close()

	d.Detect(&crop)
	d.Reset()

	// After a reset the next crop seeds a fresh baseline.
	changed, pct := d.Detect(&crop)
	if changed || pct != 0 {
		t.Errorf("after reset: changed=%v pct=%f, want baseline seeding", changed, pct)
	}
}

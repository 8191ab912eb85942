package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/maptracker/internal/detector"
)

// runPipeline is the main detection loop.
//
// Pipeline logic:
// 1. Start at the idle rate (IdleFPS)
// 2. Read a frame, retain a copy for calibration sampling
// 3. Crop the active region and run the change detector on the crop
// 4. On change, switch to the active rate (ActiveFPS)
// 5. Locate markers in the crop and publish the result
// 6. After IdleTimeoutMs with a static minimap, drop back to idle
//
// A frame that fails to read or crop is logged and skipped; nothing in
// this loop is allowed to halt the pipeline.
func (a *App) runPipeline(stopCh <-chan struct{}) {
	activeMode := false
	lastChangeTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.source.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			a.storeFrame(frame)

			if !a.IsEnabled() {
				frame.Close()
				continue
			}

			region, ok := a.Region()
			if !ok {
				frame.Close()
				continue
			}

			result, changed := a.processFrame(frame, region)
			frame.Close()

			if changed {
				lastChangeTime = time.Now()
				if !activeMode {
					activeMode = true
					a.source.SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Minimap changing; switched to active rate")
				}
			} else if activeMode {
				if time.Since(lastChangeTime) > time.Duration(IdleTimeoutMs)*time.Millisecond {
					activeMode = false
					a.source.SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					log.Println("Minimap static; switched to idle rate")
				}
			}

			a.publish(result)
		}
	}
}

// processFrame runs one detection cycle: crop, change check, locate.
// A crop failure degrades to an all-classes "not detected" result so a
// single bad frame or stale region never stops the loop.
func (a *App) processFrame(frame *gocv.Mat, region detector.Region) (detector.DetectionResult, bool) {
	crop, err := detector.CropRegion(frame, region)
	if err != nil {
		log.Printf("Region %+v does not fit frame %dx%d: %v", region, frame.Cols(), frame.Rows(), err)
		return a.locator.DetectFrame(frame, region, a.profiles.Current()), false
	}
	defer crop.Close()

	changed, _ := a.change.Detect(&crop)
	result := a.locator.Detect(&crop, region, a.profiles.Current())
	return result, changed
}

package detector

// ClassDetection is the per-class outcome of one detection pass.
// A class that is legitimately absent from the frame is reported with
// Detected=false and Confidence 0; that is a normal result, not an error.
type ClassDetection struct {
	Detected   bool    `json:"detected"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult is produced fresh for every analyzed frame. Positions
// are relative to the cropped region's top-left corner.
type DetectionResult struct {
	PerClass  map[MarkerClass]ClassDetection `json:"per_class"`
	Region    Region                         `json:"region"`
	Timestamp int64                          `json:"timestamp"`
}

// notDetected builds an all-classes "not detected" result, used when the
// whole frame fails to crop so the pipeline keeps running.
func notDetected(region Region, timestamp int64) DetectionResult {
	perClass := make(map[MarkerClass]ClassDetection, len(Classes))
	for _, class := range Classes {
		perClass[class] = ClassDetection{}
	}
	return DetectionResult{
		PerClass:  perClass,
		Region:    region,
		Timestamp: timestamp,
	}
}

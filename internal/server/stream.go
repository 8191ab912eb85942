package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
)

// StreamHandler serves MJPEG frames of the active minimap region so the
// operator can aim the crop. With no region configured it streams the
// full frame instead.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler over the given app.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := h.app.LastFrame()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		buf, err := h.encode(&frame)
		frame.Close()
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}

// encode crops the active region out of the frame (when one is set and
// still fits) and JPEG-encodes the result.
func (h *StreamHandler) encode(frame *gocv.Mat) (*gocv.NativeByteBuffer, error) {
	if region, ok := h.app.Region(); ok {
		crop, err := detector.CropRegion(frame, region)
		if err == nil {
			defer crop.Close()
			return gocv.IMEncode(".jpg", crop)
		}
	}
	return gocv.IMEncode(".jpg", *frame)
}

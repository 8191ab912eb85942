package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/ayusman/maptracker/internal/app"
	"github.com/ayusman/maptracker/internal/detector"
	"github.com/ayusman/maptracker/internal/server"
	"github.com/ayusman/maptracker/internal/store"
	"github.com/ayusman/maptracker/internal/tray"
)

func main() {
	fmt.Println("MapTracker - Minimap Marker Detection")

	// Initialize the store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".maptracker")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dbDir, "maptracker.db")
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Initialize the detection pipeline
	a := app.New(app.Config{
		Store:    st,
		DeviceID: captureDevice(),
	})
	if err := a.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}
	defer a.Stop()

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Configure and start server
	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	addr := os.Getenv("MAPTRACKER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		fmt.Printf("Starting server on %s\n", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wire the tray; systray.Run must own the main goroutine.
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(addr)); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})
	t.OnQuit(a.Stop)

	a.OnResult(func(result detector.DetectionResult) {
		player := result.PerClass[detector.ClassPlayer]
		t.SetPlayerPosition(player.Detected, player.X, player.Y)
	})

	t.Run()
}

// captureDevice reads the capture device index from MAPTRACKER_DEVICE,
// defaulting to device 0.
func captureDevice() int {
	v := os.Getenv("MAPTRACKER_DEVICE")
	if v == "" {
		return 0
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Ignoring invalid MAPTRACKER_DEVICE %q", v)
		return 0
	}
	return id
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	if addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.maptracker/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".maptracker", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

//go:build gui
// +build gui

package main

import (
	"log"
	"os"

	"github.com/olivierh59500/xmkit/pkg/config"
)

func main() {
	// Fyne thread checks log spurious errors when the preview goroutine
	// refreshes widgets.
	os.Setenv("FYNE_DISABLETHREAD", "1")

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		cfg = config.Default()
	}

	viewer := NewViewerGUI(cfg)
	if len(os.Args) > 1 {
		viewer.loadModule(os.Args[1])
	}
	viewer.Run()
}

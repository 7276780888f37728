// Command voxeld serves the JSON point-cloud tool protocol over HTTP:
// voxel downsampling, voxel debug centers, and point smoothing, plus HTML
// debug scatter pages.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/banshee-data/voxel.tools/internal/config"
	"github.com/banshee-data/voxel.tools/internal/monitoring"
	"github.com/banshee-data/voxel.tools/internal/server"
	"github.com/banshee-data/voxel.tools/internal/version"
	"github.com/banshee-data/voxel.tools/internal/voxel"
)

func main() {
	var (
		listenAddr  = flag.String("listen", "", "bind address (overrides config)")
		configPath  = flag.String("config", "", "tuning config JSON file")
		verbose     = flag.Bool("v", false, "enable core diagnostics on stderr")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxeld %s\n", version.String())
		return
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("voxeld: %v", err)
		}
	}
	if *verbose {
		voxel.SetDebugLogger(os.Stderr)
		monitoring.SetVerbose(true)
	}

	addr := cfg.GetListenAddr()
	if *listenAddr != "" {
		addr = *listenAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewServer(cfg).ServeMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	monitoring.Logf("voxeld %s: listening on %s", version.String(), addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("voxeld: %v", err)
	}
}

// Command point-smooth iteratively relaxes point positions toward their
// local neighborhood average within a radius. It reads one request from
// stdin or -in and writes one response to stdout or -out, speaking either
// the binary or the JSON tool protocol.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/voxel.tools/internal/config"
	"github.com/banshee-data/voxel.tools/internal/iostream"
	"github.com/banshee-data/voxel.tools/internal/toolproto"
	"github.com/banshee-data/voxel.tools/internal/voxel"
	"github.com/banshee-data/voxel.tools/internal/wire"
)

func main() {
	var (
		format     = flag.String("format", "binary", "wire format: binary or json")
		inPath     = flag.String("in", "", "input file (default stdin; .zst is decompressed)")
		outPath    = flag.String("out", "", "output file (default stdout; .zst is compressed)")
		configPath = flag.String("config", "", "tuning config JSON file")
		workers    = flag.Int("workers", 0, "per-round scan parallelism (0 uses config, -1 all CPUs)")
		verbose    = flag.Bool("v", false, "enable core diagnostics on stderr")
	)
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("point-smooth: %v", err)
		}
	}
	if *verbose {
		voxel.SetDebugLogger(os.Stderr)
	}

	parallelism := cfg.GetSmoothParallelism()
	if *workers != 0 {
		parallelism = *workers
	}

	in, err := iostream.OpenInput(*inPath)
	if err != nil {
		log.Fatalf("point-smooth: %v", err)
	}
	defer in.Close()
	out, err := iostream.OpenOutput(*outPath)
	if err != nil {
		log.Fatalf("point-smooth: %v", err)
	}

	switch *format {
	case "binary":
		err = runBinary(in, out, cfg, parallelism)
	case "json":
		err = runJSON(in, out, parallelism)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("point-smooth: %v", err)
	}
}

func runBinary(in io.Reader, out io.Writer, cfg *config.TuningConfig, parallelism int) error {
	req, err := wire.ReadSmoothRequest(bufio.NewReader(in))
	if err != nil {
		return err
	}
	if n := len(req.Points) / 3; n > cfg.GetMaxPoints() {
		return fmt.Errorf("point count %d exceeds limit %d", n, cfg.GetMaxPoints())
	}

	smoothed := voxel.Smooth(req.Points, voxel.SmoothOptions{
		Radius:      req.Radius,
		Iterations:  req.Iterations,
		Parallelism: parallelism,
	})

	w := bufio.NewWriter(out)
	if err := wire.WritePointsResponse(w, smoothed); err != nil {
		return err
	}
	return w.Flush()
}

func runJSON(in io.Reader, out io.Writer, parallelism int) error {
	var req toolproto.SmoothRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	res := toolproto.ProcessSmooth(&req, parallelism)
	if err := json.NewEncoder(out).Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("request failed: %s", res.Error)
	}
	return nil
}

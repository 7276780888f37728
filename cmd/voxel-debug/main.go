// Command voxel-debug enumerates the occupied voxels of a point cloud and
// emits the geometric center of each cell, for wireframe and overlay
// rendering. It reads one request from stdin or -in and writes one response
// to stdout or -out, speaking either the binary or the JSON tool protocol.
//
// Pass the same bounding box here as to voxel-downsample on the same source
// cloud, or the cell boundaries will not line up.
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
		verbose    = flag.Bool("v", false, "enable core diagnostics on stderr")
	)
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("voxel-debug: %v", err)
		}
	}
	if *verbose {
		voxel.SetDebugLogger(os.Stderr)
	}

	in, err := iostream.OpenInput(*inPath)
	if err != nil {
		log.Fatalf("voxel-debug: %v", err)
	}
	defer in.Close()
	out, err := iostream.OpenOutput(*outPath)
	if err != nil {
		log.Fatalf("voxel-debug: %v", err)
	}

	switch *format {
	case "binary":
		err = runBinary(in, out, cfg)
	case "json":
		err = runJSON(in, out)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("voxel-debug: %v", err)
	}
}

func runBinary(in io.Reader, out io.Writer, cfg *config.TuningConfig) error {
	req, err := wire.ReadDebugRequest(bufio.NewReader(in))
	if err != nil {
		return err
	}
	if n := len(req.Points) / 3; n > cfg.GetMaxPoints() {
		return fmt.Errorf("point count %d exceeds limit %d", n, cfg.GetMaxPoints())
	}

	centers := voxel.DebugCenters(req.Points, req.VoxelSize, req.Bounds)

	w := bufio.NewWriter(out)
	if err := wire.WritePointsResponse(w, centers); err != nil {
		return err
	}
	return w.Flush()
}

func runJSON(in io.Reader, out io.Writer) error {
	var req toolproto.DebugRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	res := toolproto.ProcessDebug(&req)
	if err := json.NewEncoder(out).Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("request failed: %s", res.Error)
	}
	return nil
}

// Command voxel-downsample collapses a point cloud onto a uniform voxel grid
// and emits one centroid point (plus averaged attributes) per occupied cell.
// It reads one request from stdin or -in and writes one response to stdout
// or -out, speaking either the binary or the JSON tool protocol.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/voxel.tools/internal/cloud"
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
		stats      = flag.Bool("stats", false, "print voxel occupancy statistics to stderr")
		verbose    = flag.Bool("v", false, "enable core diagnostics on stderr")
	)
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(*configPath); err != nil {
			log.Fatalf("voxel-downsample: %v", err)
		}
	}
	if *verbose {
		voxel.SetDebugLogger(os.Stderr)
	}

	in, err := iostream.OpenInput(*inPath)
	if err != nil {
		log.Fatalf("voxel-downsample: %v", err)
	}
	defer in.Close()
	out, err := iostream.OpenOutput(*outPath)
	if err != nil {
		log.Fatalf("voxel-downsample: %v", err)
	}

	switch *format {
	case "binary":
		err = runBinary(in, out, cfg, *stats)
	case "json":
		err = runJSON(in, out, *stats)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("voxel-downsample: %v", err)
	}
}

func runBinary(in io.Reader, out io.Writer, cfg *config.TuningConfig, stats bool) error {
	req, err := wire.ReadDownsampleRequest(bufio.NewReader(in))
	if err != nil {
		return err
	}
	if n := req.Cloud.Len(); n > cfg.GetMaxPoints() {
		return fmt.Errorf("point count %d exceeds limit %d", n, cfg.GetMaxPoints())
	}

	res := voxel.Downsample(&req.Cloud, req.VoxelSize, req.Bounds)
	if stats {
		printStats(res.CellCounts)
	}

	w := bufio.NewWriter(out)
	if err := wire.WriteDownsampleResponse(w, res); err != nil {
		return err
	}
	return w.Flush()
}

func runJSON(in io.Reader, out io.Writer, stats bool) error {
	var req toolproto.DownsampleRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	res := toolproto.ProcessDownsample(&req)
	if err := json.NewEncoder(out).Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		// The error record has already been written; mirror it on the exit
		// status for callers that only check that.
		return fmt.Errorf("request failed: %s", res.Error)
	}
	if stats {
		// The JSON path re-runs aggregation bookkeeping only when asked.
		c := &cloud.Cloud{Points: req.PointCloudData}
		b, ok := cloud.ComputeBounds(req.PointCloudData)
		if req.GlobalBounds != nil {
			b = cloud.Bounds{
				MinX: req.GlobalBounds.MinX, MaxX: req.GlobalBounds.MaxX,
				MinY: req.GlobalBounds.MinY, MaxY: req.GlobalBounds.MaxY,
				MinZ: req.GlobalBounds.MinZ, MaxZ: req.GlobalBounds.MaxZ,
			}
			ok = true
		}
		if ok {
			printStats(voxel.Downsample(c, req.VoxelSize, b).CellCounts)
		}
	}
	return nil
}

func printStats(counts []int) {
	s := cloud.Occupancy(counts)
	fmt.Fprintf(os.Stderr, "voxels=%d points=%d mean=%.2f stddev=%.2f median=%.1f max=%d\n",
		s.VoxelCount, s.PointCount, s.MeanPerVoxel, s.StdDevPerVoxel, s.MedianPerVoxel, s.MaxPerVoxel)
}

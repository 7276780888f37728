// Package server exposes the JSON tool protocol over HTTP, plus HTML debug
// pages for eyeballing downsampled clouds.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/voxel.tools/internal/cloud"
	"github.com/banshee-data/voxel.tools/internal/config"
	"github.com/banshee-data/voxel.tools/internal/monitoring"
	"github.com/banshee-data/voxel.tools/internal/toolproto"
	"github.com/banshee-data/voxel.tools/internal/viz"
	"github.com/banshee-data/voxel.tools/internal/voxel"
)

// Server hosts the point-cloud tool endpoints. It is stateless: every
// request carries its own buffers and nothing persists across calls.
type Server struct {
	cfg *config.TuningConfig
}

// NewServer returns a server using the given tuning config; nil means
// defaults.
func NewServer(cfg *config.TuningConfig) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	return &Server{cfg: cfg}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tools/voxel-downsample", s.handleDownsample)
	mux.HandleFunc("/api/tools/voxel-debug", s.handleDebug)
	mux.HandleFunc("/api/tools/point-smooth", s.handleSmooth)
	mux.HandleFunc("/debug/scatter", s.handleScatter)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte("voxel.tools point-cloud tool server\n"))
}

// decodeRequest enforces method, body size and point-count limits, then
// unmarshals the JSON record into dst. countPoints extracts the buffer whose
// length must respect the configured point limit.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}, countPoints func() int) (string, bool) {
	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return reqID, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.GetMaxRequestBytes())
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return reqID, false
	}
	if n := countPoints(); n > s.cfg.GetMaxPoints() {
		s.writeJSONError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("point count %d exceeds limit %d", n, s.cfg.GetMaxPoints()))
		return reqID, false
	}
	return reqID, true
}

func (s *Server) handleDownsample(w http.ResponseWriter, r *http.Request) {
	var req toolproto.DownsampleRequest
	reqID, ok := s.decodeRequest(w, r, &req, func() int { return len(req.PointCloudData) / 3 })
	if !ok {
		return
	}

	res := toolproto.ProcessDownsample(&req)
	s.writeResult(w, reqID, "voxel-downsample", res.Success, res.Error, res.ProcessingTime, res)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req toolproto.DebugRequest
	reqID, ok := s.decodeRequest(w, r, &req, func() int { return len(req.PointCloudData) / 3 })
	if !ok {
		return
	}

	res := toolproto.ProcessDebug(&req)
	s.writeResult(w, reqID, "voxel-debug", res.Success, res.Error, res.ProcessingTime, res)
}

func (s *Server) handleSmooth(w http.ResponseWriter, r *http.Request) {
	var req toolproto.SmoothRequest
	reqID, ok := s.decodeRequest(w, r, &req, func() int { return len(req.PointCloudData) / 3 })
	if !ok {
		return
	}

	res := toolproto.ProcessSmooth(&req, s.cfg.GetSmoothParallelism())
	s.writeResult(w, reqID, "point-smooth", res.Success, res.Error, res.ProcessingTime, res)
}

// handleScatter renders an HTML scatter of the downsampled cloud for a
// posted downsample request. Debugging-only endpoint; the occupancy summary
// goes in the chart title.
func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	var req toolproto.DownsampleRequest
	reqID, ok := s.decodeRequest(w, r, &req, func() int { return len(req.PointCloudData) / 3 })
	if !ok {
		return
	}

	c := &cloud.Cloud{Points: req.PointCloudData}
	if err := c.Validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	bounds, found := cloud.ComputeBounds(req.PointCloudData)
	if req.GlobalBounds != nil {
		bounds = cloud.Bounds{
			MinX: req.GlobalBounds.MinX, MaxX: req.GlobalBounds.MaxX,
			MinY: req.GlobalBounds.MinY, MaxY: req.GlobalBounds.MaxY,
			MinZ: req.GlobalBounds.MinZ, MaxZ: req.GlobalBounds.MaxZ,
		}
		found = true
	}
	if !found {
		s.writeJSONError(w, http.StatusBadRequest, "empty point buffer")
		return
	}

	start := time.Now()
	res := voxel.Downsample(c, req.VoxelSize, bounds)
	stats := cloud.Occupancy(res.CellCounts)
	title := fmt.Sprintf("downsampled cloud: %d voxels, mean %.1f pts/voxel (max %d)",
		stats.VoxelCount, stats.MeanPerVoxel, stats.MaxPerVoxel)

	scatter := viz.CloudScatter(title, res.Points, s.cfg.GetVizMaxPoints())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := scatter.Render(w); err != nil {
		monitoring.Logf("scatter render failed (request %s): %v", reqID, err)
		return
	}
	monitoring.Debugf("scatter: request %s rendered %d voxels in %v", reqID, res.VoxelCount(), time.Since(start))
}

// writeResult serialises a tool result record. Malformed input surfaces as a
// 400 with the same record shape; degenerate input is a 200 success.
func (s *Server) writeResult(w http.ResponseWriter, reqID, tool string, success bool, errMsg string, durationMs float64, res interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if !success {
		w.WriteHeader(http.StatusBadRequest)
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		monitoring.Logf("%s: request %s response encode failed: %v", tool, reqID, err)
		return
	}
	if success {
		monitoring.Debugf("%s: request %s completed in %.2fms", tool, reqID, durationMs)
	} else {
		monitoring.Logf("%s: request %s rejected: %s", tool, reqID, errMsg)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}

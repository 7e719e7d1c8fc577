// Package httpapi serves the read-only gallery API: stored containers,
// their source images and overlays, discovered images, configured models
// and a host summary. Generation stays on the CLI; the server never
// mutates the mask folder.
package httpapi

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/internal/config"
	"maskd/internal/imaging"
	"maskd/internal/masks"
	"maskd/internal/runner"
	"maskd/internal/store"
	"maskd/internal/system"
	"maskd/pkg/types"
)

// Server exposes the gallery over HTTP.
type Server struct {
	cfg config.Config
	run *runner.Runner
}

// NewServer builds a gallery server over the configuration and runner.
func NewServer(cfg config.Config, run *runner.Runner) *Server {
	return &Server{cfg: cfg, run: run}
}

// Handler assembles the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/masks", s.listMasks)
		r.Get("/masks/{name}", s.maskSummary)
		r.Get("/masks/{name}/image", s.maskImage)
		r.Get("/masks/{name}/overlay", s.maskOverlay)
		r.Get("/images", s.listImages)
		r.Get("/models", s.listModels)
		r.Get("/system", s.systemSummary)
	})
	return r
}

func (s *Server) maskFolder() (string, error) {
	return fsutil.ExpandHome(s.cfg.Application.MaskFolder)
}

// containerPath resolves a container base name inside the mask folder.
// Names with path separators are rejected so the folder cannot be
// escaped.
func (s *Server) containerPath(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", false
	}
	if !strings.HasSuffix(strings.ToLower(name), store.Ext) {
		name += store.Ext
	}
	folder, err := s.maskFolder()
	if err != nil {
		return "", false
	}
	return filepath.Join(folder, name), true
}

func (s *Server) listMasks(w http.ResponseWriter, r *http.Request) {
	folder, err := s.maskFolder()
	if err != nil {
		writeError(w, err)
		return
	}
	paths, err := store.List(folder)
	if err != nil {
		writeError(w, err)
		return
	}
	summaries := make([]types.ContainerSummary, 0, len(paths))
	for _, p := range paths {
		sum, err := store.ReadSummary(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("skipping unreadable container")
			continue
		}
		summaries = append(summaries, sum)
	}
	writeJSON(w, map[string]any{"masks": summaries})
}

func (s *Server) maskSummary(w http.ResponseWriter, r *http.Request) {
	path, ok := s.containerPath(chi.URLParam(r, "name"))
	if !ok {
		writeStatus(w, http.StatusBadRequest, "invalid container name")
		return
	}
	sum, err := store.ReadSummary(path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) maskImage(w http.ResponseWriter, r *http.Request) {
	path, ok := s.containerPath(chi.URLParam(r, "name"))
	if !ok {
		writeStatus(w, http.StatusBadRequest, "invalid container name")
		return
	}
	c, err := store.Read(path)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(c.SourceBytes))
	w.Write(c.SourceBytes)
}

func (s *Server) maskOverlay(w http.ResponseWriter, r *http.Request) {
	path, ok := s.containerPath(chi.URLParam(r, "name"))
	if !ok {
		writeStatus(w, http.StatusBadRequest, "invalid container name")
		return
	}
	c, err := store.Read(path)
	if err != nil {
		writeError(w, err)
		return
	}
	frame, _, err := imaging.DecodeFrame(c.SourceBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	img, err := masks.RenderOverlay(frame, c.Masks)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	records, err := imaging.ListImages(s.cfg.Application.ImageFolder, s.cfg.Application.ImageExtensions)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []imaging.Record{}
	}
	writeJSON(w, map[string]any{"images": records})
}

type modelView struct {
	Key           string `json:"key"`
	Family        string `json:"family"`
	Checkpoint    string `json:"checkpoint"`
	DefaultPreset string `json:"default_preset,omitempty"`
	Default       bool   `json:"default"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	reg := s.run.Registry()
	views := make([]modelView, 0)
	for _, key := range reg.Keys() {
		entry, ok := reg.Entry(key)
		if !ok {
			continue
		}
		views = append(views, modelView{
			Key:           key,
			Family:        entry.Family,
			Checkpoint:    entry.Checkpoint,
			DefaultPreset: entry.Preset,
			Default:       key == reg.DefaultModel(),
		})
	}
	writeJSON(w, map[string]any{"models": views})
}

func (s *Server) systemSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, system.Summarize())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// Package registry resolves model keys to concrete model descriptors:
// family tag, architecture, artifact paths, and target device. It also
// provisions missing artifacts from their configured remote sources.
//
// Every failure here happens before any inference work begins.
package registry

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/internal/config"
	"maskd/pkg/types"
)

// Detector reports whether a CUDA-capable accelerator is present,
// together with a human-readable detail string.
type Detector interface {
	Detect() (bool, string)
}

// Registry resolves and provisions models described in the configuration.
type Registry struct {
	cfg      config.Config
	detector Detector
	client   *http.Client
}

// New builds a registry over the given configuration and accelerator
// detector.
func New(cfg config.Config, detector Detector) *Registry {
	return &Registry{
		cfg:      cfg,
		detector: detector,
		// Large checkpoints over slow links; the per-request context still
		// bounds the transfer.
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// DefaultModel returns the configured default model key, if any.
func (r *Registry) DefaultModel() string { return r.cfg.DefaultModel }

// Keys returns the sorted configured model keys.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.cfg.Models))
	for k := range r.cfg.Models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entry returns the raw config entry for a model key.
func (r *Registry) Entry(modelKey string) (config.ModelEntry, bool) {
	e, ok := r.cfg.Models[modelKey]
	return e, ok
}

// Resolve maps a model key to an immutable descriptor. Paths in the
// descriptor are the configured names; Provision turns them into
// guaranteed-local files.
func (r *Registry) Resolve(modelKey string) (types.ModelDescriptor, error) {
	entry, ok := r.cfg.Models[modelKey]
	if !ok {
		return types.ModelDescriptor{}, types.Configuration(
			"unknown model key %q; configured models: %s",
			modelKey, strings.Join(r.Keys(), ", "))
	}
	if entry.Family == "" {
		return types.ModelDescriptor{}, types.Configuration("model %q is missing a family", modelKey)
	}
	family, err := types.ParseFamily(entry.Family)
	if err != nil {
		return types.ModelDescriptor{}, types.Configuration("model %q: %v", modelKey, err)
	}
	if entry.Checkpoint == "" {
		return types.ModelDescriptor{}, types.Configuration("model %q is missing a checkpoint", modelKey)
	}
	if family == types.FamilySAM1 && entry.Type == "" {
		return types.ModelDescriptor{}, types.Configuration(
			"model %q requires a type (vit_b, vit_l, vit_h)", modelKey)
	}
	if family.RequiresConfigFile() && entry.ConfigFile == "" {
		return types.ModelDescriptor{}, types.Configuration(
			"model %q (family %s) requires a companion config file", modelKey, family)
	}

	device, err := r.ResolveDevice(r.cfg.Device)
	if err != nil {
		return types.ModelDescriptor{}, err
	}

	desc := types.ModelDescriptor{
		Key:           modelKey,
		Family:        family,
		Architecture:  entry.Type,
		Checkpoint:    entry.Checkpoint,
		CheckpointURL: entry.URL,
		ConfigFile:    entry.ConfigFile,
		ConfigURL:     entry.ConfigURL,
		Device:        device,
		DefaultPreset: entry.Preset,
	}
	log.Debug().
		Str("model", modelKey).
		Stringer("family", family).
		Str("device", device).
		Msg("resolved model descriptor")
	return desc, nil
}

// ResolveDevice maps a requested device to the one the model should use.
//
//	cpu  → cpu, always
//	cuda → cuda, or ConfigurationError when no accelerator is present
//	auto → best available accelerator, falling back to cpu; never errors
func (r *Registry) ResolveDevice(requested string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "", "cpu":
		return "cpu", nil
	case "cuda":
		ok, detail := r.detector.Detect()
		if !ok {
			return "", types.Configuration(
				"device \"cuda\" requested but no accelerator is available (%s)", detail)
		}
		return "cuda", nil
	case "auto":
		if ok, detail := r.detector.Detect(); ok {
			log.Debug().Str("accelerator", detail).Msg("device auto resolved to cuda")
			return "cuda", nil
		}
		log.Debug().Msg("device auto resolved to cpu")
		return "cpu", nil
	default:
		return "", types.Configuration("unknown device %q (expected cpu, cuda, or auto)", requested)
	}
}

// modelFolder expands the configured model folder and ensures it exists.
func (r *Registry) modelFolder() (string, error) {
	folder, err := fsutil.ExpandHome(r.cfg.Application.ModelFolder)
	if err != nil {
		return "", types.Configuration("model folder: %v", err)
	}
	return folder, nil
}

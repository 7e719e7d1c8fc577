// Package runner ties the core together: it resolves a model and preset,
// executes one supervised generation pass over a decoded image, folds the
// raw masks into the unified schema, and persists or reloads the
// resulting container.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/internal/config"
	"maskd/internal/executor"
	"maskd/internal/masks"
	"maskd/internal/model"
	"maskd/internal/presets"
	"maskd/internal/registry"
	"maskd/internal/store"
	"maskd/pkg/types"
)

// Input is one decoded image handed in by the discovery collaborator.
type Input struct {
	Path        string
	Frame       types.Frame
	Info        types.ImageInfo
	SourceBytes []byte
}

// Runner is the single entry point CLI and HTTP collaborators call.
type Runner struct {
	cfg      config.Config
	registry *registry.Registry
	presets  *presets.Resolver
	exec     *executor.Executor

	// Isolated controls whether generation runs in a supervised child
	// process (the default) or in-process (embedding and tests).
	Isolated bool
	// Timeout bounds one generation call.
	Timeout time.Duration
}

// New builds a runner over the configuration and accelerator detector.
func New(cfg config.Config, detector registry.Detector) *Runner {
	timeout := time.Duration(cfg.Application.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Runner{
		cfg:      cfg,
		registry: registry.New(cfg, detector),
		presets:  presets.NewResolver(cfg.Presets),
		exec:     executor.New(),
		Isolated: true,
		Timeout:  timeout,
	}
}

// Registry exposes model resolution to collaborators (CLI listings).
func (r *Runner) Registry() *registry.Registry { return r.registry }

// Presets exposes preset lookups to collaborators.
func (r *Runner) Presets() *presets.Resolver { return r.presets }

// OutputPath derives the canonical container path for an input and the
// model/preset pair, under the configured mask folder.
func (r *Runner) OutputPath(imagePath, modelKey, preset string) (string, error) {
	folder, err := fsutil.ExpandHome(r.cfg.Application.MaskFolder)
	if err != nil {
		return "", types.Configuration("mask folder: %v", err)
	}
	return store.OutputPath(folder, imagePath, modelKey, preset), nil
}

// Run performs one full generation pass and returns the in-memory
// container. Persistence is a separate, caller-decided step (Save), so
// overwrite policy stays outside the core.
func (r *Runner) Run(ctx context.Context, modelKey, presetName string, in Input) (types.MaskContainer, error) {
	if modelKey == "" {
		modelKey = r.registry.DefaultModel()
		if modelKey == "" {
			return types.MaskContainer{}, types.Configuration("no model key given and no default model configured")
		}
	}

	desc, err := r.registry.Resolve(modelKey)
	if err != nil {
		return types.MaskContainer{}, err
	}
	if presetName == "" {
		presetName = desc.DefaultPreset
		if presetName == "" {
			return types.MaskContainer{}, types.Configuration(
				"model %q has no default preset and none was given", modelKey)
		}
	}
	params, err := r.presets.Resolve(modelKey, presetName)
	if err != nil {
		return types.MaskContainer{}, err
	}
	if err := in.Frame.Validate(); err != nil {
		return types.MaskContainer{}, types.Configuration("image buffer: %v", err)
	}

	desc, err = r.registry.Provision(ctx, desc)
	if err != nil {
		return types.MaskContainer{}, err
	}

	// Load in the calling process as well: it validates the artifacts
	// before a worker is spawned and yields the checkpoint identity for
	// the provenance block. The worker owns its own handle.
	loaded, err := model.Load(desc)
	if err != nil {
		return types.MaskContainer{}, err
	}

	log.Info().
		Str("model", modelKey).
		Str("preset", presetName).
		Stringer("family", desc.Family).
		Str("device", desc.Device).
		Bool("isolated", r.Isolated).
		Msg("starting mask generation")

	start := time.Now()
	var raws []types.RawMask
	if r.Isolated {
		raws, err = r.exec.Execute(ctx, executor.Request{
			Descriptor: desc,
			Params:     params,
			Frame:      in.Frame,
		}, r.Timeout)
	} else {
		raws, err = model.Generate(loaded, in.Frame, params)
	}
	elapsed := time.Since(start)
	observeRun(desc.Family, err, elapsed)
	if err != nil {
		return types.MaskContainer{}, err
	}

	records := masks.NormalizeAll(raws, desc.Family)
	log.Info().Int("masks", len(records)).Dur("elapsed", elapsed).Msg("mask generation finished")

	return types.MaskContainer{
		SourceBytes: in.SourceBytes,
		Masks:       records,
		Image:       in.Info,
		Model: types.ModelInfo{
			Family:           desc.Family.String(),
			Architecture:     loaded.Architecture,
			Checkpoint:       desc.Checkpoint,
			CheckpointSHA256: loaded.CheckpointSHA,
			ConfigFile:       desc.ConfigFile,
			Preset:           presetName,
			ModelKey:         modelKey,
		},
		Preset: params,
		Run:    runInfo(start, elapsed, len(records), in.Info),
	}, nil
}

// Save writes the container to its canonical path.
func (r *Runner) Save(c types.MaskContainer) (string, error) {
	path, err := r.OutputPath(c.Image.Path, c.Model.ModelKey, c.Model.Preset)
	if err != nil {
		return "", err
	}
	return store.Write(path, c.Masks, c.SourceBytes, c.Image, c.Model, c.Preset, c.Run)
}

// Load reads a previously persisted container for inspection or export.
func (r *Runner) Load(path string) (types.MaskContainer, error) {
	return store.Read(path)
}

func runInfo(start time.Time, elapsed time.Duration, maskCount int, info types.ImageInfo) types.RunInfo {
	seconds := elapsed.Seconds()
	megapixels := float64(info.Width*info.Height) / 1e6
	ri := types.RunInfo{
		RunID:      uuid.NewString(),
		Filtering:  "none",
		StartTime:  start.UTC(),
		EndTime:    start.Add(elapsed).UTC(),
		Megapixels: megapixels,
	}
	ri.ElapsedSeconds = seconds
	if seconds > 0 {
		ri.MasksPerSecond = float64(maskCount) / seconds
		ri.MegapixelsPerSecond = megapixels / seconds
	}
	return ri
}

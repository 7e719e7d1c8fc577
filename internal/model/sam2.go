package model

import (
	"os"

	"gopkg.in/yaml.v3"

	"maskd/pkg/types"
)

// sam2RequiredKeys is the fixed preset key set shared by the
// config-driven families.
var sam2RequiredKeys = []string{
	"points_per_side",
	"pred_iou_thresh",
	"stability_score_thresh",
	"crop_n_layers",
	"min_mask_region_area",
}

// sam2Adapter is the single-image, config-driven family: checkpoint plus
// a companion YAML definition file.
type sam2Adapter struct{}

func (sam2Adapter) Family() types.Family { return types.FamilySAM2 }

func (sam2Adapter) Load(desc types.ModelDescriptor) (*Loaded, error) {
	return loadConfigDriven(desc, types.FamilySAM2)
}

func (a sam2Adapter) Generate(m *Loaded, frame types.Frame, params types.Params) ([]types.RawMask, error) {
	regions, err := configDrivenRegions(a.Family(), m, frame, params)
	if err != nil {
		return nil, err
	}
	out := make([]types.RawMask, 0, len(regions))
	for _, reg := range regions {
		score := reg.score
		area := reg.area
		out = append(out, types.RawMask{
			Segmentation: reg.bitmap,
			Score:        &score,
			BBox:         reg.bbox[:],
			Area:         &area,
		})
	}
	return out, nil
}

// modelDefinition is the subset of the companion YAML file the loader
// understands; unknown keys are ignored.
type modelDefinition struct {
	Model struct {
		Name      string `yaml:"name"`
		ImageSize int    `yaml:"image_size"`
	} `yaml:"model"`
}

// loadConfigDriven opens the checkpoint and the companion definition
// file for the second-generation families.
func loadConfigDriven(desc types.ModelDescriptor, family types.Family) (*Loaded, error) {
	digest, err := checkpointDigest(desc.Checkpoint)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(desc.ConfigFile)
	if err != nil {
		return nil, types.Configuration("read model config %s: %v", desc.ConfigFile, err)
	}
	var def modelDefinition
	if err := yaml.Unmarshal(b, &def); err != nil {
		return nil, types.Configuration("parse model config %s: %v", desc.ConfigFile, err)
	}
	scale := 1
	if def.Model.ImageSize >= 1024 {
		scale = 2
	}
	return &Loaded{
		Key:           desc.Key,
		Family:        family,
		Architecture:  def.Model.Name,
		Device:        desc.Device,
		CheckpointSHA: digest,
		gridScale:     scale,
	}, nil
}

// configDrivenRegions validates the shared preset keys and runs the
// generator for the config-driven families.
func configDrivenRegions(family types.Family, m *Loaded, frame types.Frame, params types.Params) ([]region, error) {
	if err := requireParams(family, params, sam2RequiredKeys); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, types.InferenceError{Detail: err.Error()}
	}

	pps, _ := params.Int("points_per_side")
	iou, _ := params.Float("pred_iou_thresh")
	stab, _ := params.Float("stability_score_thresh")
	layers, _ := params.Int("crop_n_layers")
	minArea, _ := params.Int("min_mask_region_area")

	return generateRegions(frame, generatorConfig{
		pointsPerSide:   pps * m.gridScale,
		predIoUThresh:   iou,
		stabilityThresh: stab,
		cropLayers:      layers,
		downscale:       2,
		minRegionArea:   minArea,
	}), nil
}

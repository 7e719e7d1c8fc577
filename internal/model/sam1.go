package model

import (
	"maskd/pkg/types"
)

// sam1RequiredKeys is the fixed preset key set for the first-generation
// family.
var sam1RequiredKeys = []string{
	"points_per_side",
	"pred_iou_thresh",
	"stability_score_thresh",
	"crop_n_layers",
	"crop_n_points_downscale_factor",
	"min_mask_region_area",
	"output_mode",
}

// sam1Adapter is the single-image, architecture-only family: a
// checkpoint plus an architecture tag, no companion config file.
type sam1Adapter struct{}

func (sam1Adapter) Family() types.Family { return types.FamilySAM1 }

func (sam1Adapter) Load(desc types.ModelDescriptor) (*Loaded, error) {
	var scale int
	switch desc.Architecture {
	case "vit_b":
		scale = 1
	case "vit_l":
		scale = 2
	case "vit_h":
		scale = 3
	default:
		return nil, types.Configuration(
			"unknown architecture %q for model %q (allowed: vit_b, vit_l, vit_h)",
			desc.Architecture, desc.Key)
	}
	digest, err := checkpointDigest(desc.Checkpoint)
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Key:           desc.Key,
		Family:        types.FamilySAM1,
		Architecture:  desc.Architecture,
		Device:        desc.Device,
		CheckpointSHA: digest,
		gridScale:     scale,
	}, nil
}

func (a sam1Adapter) Generate(m *Loaded, frame types.Frame, params types.Params) ([]types.RawMask, error) {
	if err := requireParams(a.Family(), params, sam1RequiredKeys); err != nil {
		return nil, err
	}
	if mode, _ := params.String("output_mode"); mode != "binary_mask" {
		return nil, types.Configuration("family sam1 supports output_mode \"binary_mask\" only, got %q", mode)
	}
	if err := frame.Validate(); err != nil {
		return nil, types.InferenceError{Detail: err.Error()}
	}

	pps, _ := params.Int("points_per_side")
	iou, _ := params.Float("pred_iou_thresh")
	stab, _ := params.Float("stability_score_thresh")
	layers, _ := params.Int("crop_n_layers")
	down, _ := params.Int("crop_n_points_downscale_factor")
	minArea, _ := params.Int("min_mask_region_area")

	regions := generateRegions(frame, generatorConfig{
		pointsPerSide:   pps * m.gridScale,
		predIoUThresh:   iou,
		stabilityThresh: stab,
		cropLayers:      layers,
		downscale:       down,
		minRegionArea:   minArea,
	})

	out := make([]types.RawMask, 0, len(regions))
	for _, reg := range regions {
		score := reg.score
		area := reg.area
		out = append(out, types.RawMask{
			Segmentation: reg.bitmap,
			PredictedIoU: &score,
			BBox:         reg.bbox[:],
			Area:         &area,
		})
	}
	return out, nil
}

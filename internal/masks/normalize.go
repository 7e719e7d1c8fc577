// Package masks maps family-specific raw masks into the unified mask
// record schema and renders mask overlays for inspection.
package masks

import (
	"maskd/pkg/types"
)

// Normalize maps one raw mask into the unified schema. It is total,
// deterministic, and side-effect free: absent optional fields become the
// schema's unset sentinels instead of family-specific conventions.
func Normalize(raw types.RawMask, family types.Family) types.MaskRecord {
	bm := raw.Segmentation
	raster := types.NewRaster(bm.Width, bm.Height)
	for i, v := range bm.Pix {
		if v != 0 {
			raster.Pix[i] = 1
		}
	}

	confidence := 0.0
	if family == types.FamilySAM1 {
		if raw.PredictedIoU != nil {
			confidence = *raw.PredictedIoU
		}
	} else if raw.Score != nil {
		confidence = *raw.Score
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	var bbox []int64
	if len(raw.BBox) == 4 {
		bbox = append(bbox, raw.BBox...)
	}

	var area int64
	if raw.Area != nil {
		area = *raw.Area
	}

	track := types.TrackNone
	if family.Tracks() && raw.TrackID != nil {
		track = *raw.TrackID
	}

	metadata := map[string]any{}
	for k, v := range raw.Extra {
		metadata[k] = v
	}

	return types.MaskRecord{
		Raster:     raster,
		Confidence: confidence,
		BBox:       bbox,
		Area:       area,
		TrackID:    track,
		Metadata:   metadata,
	}
}

// NormalizeAll maps a whole raw mask list, preserving the adapter's
// native order.
func NormalizeAll(raws []types.RawMask, family types.Family) []types.MaskRecord {
	out := make([]types.MaskRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw, family))
	}
	return out
}

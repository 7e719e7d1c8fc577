package model

import (
	"maskd/pkg/types"
)

// sam21Adapter is the multi-frame-capable, config-driven family. Its raw
// masks carry tracking identifiers so regions can be followed across
// frames; on a single frame the ids are the stable region indices.
type sam21Adapter struct{}

func (sam21Adapter) Family() types.Family { return types.FamilySAM21 }

func (sam21Adapter) Load(desc types.ModelDescriptor) (*Loaded, error) {
	return loadConfigDriven(desc, types.FamilySAM21)
}

func (a sam21Adapter) Generate(m *Loaded, frame types.Frame, params types.Params) ([]types.RawMask, error) {
	regions, err := configDrivenRegions(a.Family(), m, frame, params)
	if err != nil {
		return nil, err
	}
	out := make([]types.RawMask, 0, len(regions))
	for i, reg := range regions {
		score := reg.score
		area := reg.area
		track := int64(i)
		out = append(out, types.RawMask{
			Segmentation: reg.bitmap,
			Score:        &score,
			BBox:         reg.bbox[:],
			Area:         &area,
			TrackID:      &track,
		})
	}
	return out, nil
}

package model

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"maskd/pkg/types"
)

func writeCheckpoint(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake-weights-0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sam1Descriptor(t *testing.T) types.ModelDescriptor {
	return types.ModelDescriptor{
		Key:          "sam_base",
		Family:       types.FamilySAM1,
		Architecture: "vit_b",
		Checkpoint:   writeCheckpoint(t, t.TempDir(), "sam_vit_b.pth"),
		Device:       "cpu",
	}
}

func sam1FullParams() types.Params {
	return types.Params{
		"points_per_side":                8,
		"pred_iou_thresh":                0.5,
		"stability_score_thresh":         0.95,
		"crop_n_layers":                  0,
		"crop_n_points_downscale_factor": 1,
		"min_mask_region_area":           16,
		"output_mode":                    "binary_mask",
	}
}

// threeRegionFrame paints three solid vertical color bands on a 64x64
// canvas.
func threeRegionFrame() types.Frame {
	f := types.NewFrame(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			switch {
			case x < 21:
				f.SetRGB(x, y, 220, 30, 30)
			case x < 42:
				f.SetRGB(x, y, 30, 220, 30)
			default:
				f.SetRGB(x, y, 30, 30, 220)
			}
		}
	}
	return f
}

func TestSAM1LoadComputesDigest(t *testing.T) {
	m, err := Load(sam1Descriptor(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.CheckpointSHA) != 64 {
		t.Fatalf("checkpoint sha = %q, want 64 hex chars", m.CheckpointSHA)
	}
	if m.Family != types.FamilySAM1 || m.Architecture != "vit_b" {
		t.Fatalf("loaded = %+v", m)
	}
}

func TestSAM1LoadRejectsUnknownArchitecture(t *testing.T) {
	desc := sam1Descriptor(t)
	desc.Architecture = "vit_x"
	if _, err := Load(desc); !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestSAM1LoadRejectsEmptyCheckpoint(t *testing.T) {
	desc := sam1Descriptor(t)
	empty := filepath.Join(t.TempDir(), "empty.pth")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	desc.Checkpoint = empty
	if _, err := Load(desc); !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestSAM1GenerateRequiresAllKeys(t *testing.T) {
	m, err := Load(sam1Descriptor(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, drop := range []string{"points_per_side", "output_mode", "min_mask_region_area"} {
		params := sam1FullParams()
		delete(params, drop)
		if _, err := Generate(m, threeRegionFrame(), params); !types.IsConfiguration(err) {
			t.Errorf("missing %q: err = %v, want ConfigurationError", drop, err)
		}
	}
}

func TestSAM1GenerateRejectsNonBinaryOutputMode(t *testing.T) {
	m, err := Load(sam1Descriptor(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	params := sam1FullParams()
	params["output_mode"] = "coco_rle"
	if _, err := Generate(m, threeRegionFrame(), params); !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestSAM1GenerateFindsThreeRegions(t *testing.T) {
	m, err := Load(sam1Descriptor(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	masks, err := Generate(m, threeRegionFrame(), sam1FullParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(masks) != 3 {
		t.Fatalf("got %d masks, want 3", len(masks))
	}
	var covered int64
	for i, rm := range masks {
		if rm.PredictedIoU == nil || *rm.PredictedIoU <= 0 || *rm.PredictedIoU > 1 {
			t.Fatalf("mask %d predicted iou = %v", i, rm.PredictedIoU)
		}
		if rm.Area == nil || *rm.Area != rm.Segmentation.Count() {
			t.Fatalf("mask %d area does not match member count", i)
		}
		if len(rm.BBox) != 4 || rm.BBox[2] <= 0 || rm.BBox[3] <= 0 {
			t.Fatalf("mask %d bbox = %v", i, rm.BBox)
		}
		if rm.TrackID != nil {
			t.Fatalf("mask %d carries a track id for a non-tracking family", i)
		}
		covered += *rm.Area
	}
	if covered != 64*64 {
		t.Fatalf("regions cover %d pixels, want full 64x64 frame", covered)
	}
}

func TestSAM1GenerateIsDeterministic(t *testing.T) {
	m, err := Load(sam1Descriptor(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	a, err := Generate(m, threeRegionFrame(), sam1FullParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(m, threeRegionFrame(), sam1FullParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("mask counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if *a[i].Area != *b[i].Area || a[i].BBox[0] != b[i].BBox[0] {
			t.Fatalf("mask %d differs between identical runs", i)
		}
	}
}

func sam2Descriptor(t *testing.T, family types.Family, imageSize int) types.ModelDescriptor {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "model.yaml")
	cfgBody := "model:\n  name: hiera_b\n  image_size: " + strconv.Itoa(imageSize) + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return types.ModelDescriptor{
		Key:        "sam2_model",
		Family:     family,
		Checkpoint: writeCheckpoint(t, dir, "sam2.pt"),
		ConfigFile: cfgPath,
		Device:     "cpu",
	}
}

func sam2FullParams() types.Params {
	return types.Params{
		"points_per_side":        8,
		"pred_iou_thresh":        0.5,
		"stability_score_thresh": 0.95,
		"crop_n_layers":          0,
		"min_mask_region_area":   16,
	}
}

func TestSAM2LoadReadsDefinition(t *testing.T) {
	m, err := Load(sam2Descriptor(t, types.FamilySAM2, 1024))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Architecture != "hiera_b" {
		t.Fatalf("architecture = %q, want hiera_b", m.Architecture)
	}
}

func TestSAM2LoadRejectsBadDefinition(t *testing.T) {
	desc := sam2Descriptor(t, types.FamilySAM2, 512)
	if err := os.WriteFile(desc.ConfigFile, []byte("model: [not a mapping"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(desc); !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestSAM2GenerateScoresWithoutTrackIDs(t *testing.T) {
	m, err := Load(sam2Descriptor(t, types.FamilySAM2, 512))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	masks, err := Generate(m, threeRegionFrame(), sam2FullParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(masks) == 0 {
		t.Fatal("no masks generated")
	}
	for i, rm := range masks {
		if rm.Score == nil {
			t.Fatalf("mask %d has no score", i)
		}
		if rm.PredictedIoU != nil || rm.TrackID != nil {
			t.Fatalf("mask %d carries fields of another family", i)
		}
	}
}

func TestSAM21GenerateAssignsSequentialTrackIDs(t *testing.T) {
	m, err := Load(sam2Descriptor(t, types.FamilySAM21, 512))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	masks, err := Generate(m, threeRegionFrame(), sam2FullParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(masks) == 0 {
		t.Fatal("no masks generated")
	}
	for i, rm := range masks {
		if rm.TrackID == nil || *rm.TrackID != int64(i) {
			t.Fatalf("mask %d track id = %v, want %d", i, rm.TrackID, i)
		}
	}
}

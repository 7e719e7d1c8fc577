package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"maskd/internal/config"
	"maskd/pkg/types"
)

type stubDetector struct{ found bool }

func (s stubDetector) Detect() (bool, string) { return s.found, "stub" }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Application.ModelFolder = filepath.Join(root, "models")
	cfg.Application.MaskFolder = filepath.Join(root, "masks")
	cfg.Application.ImageFolder = filepath.Join(root, "images")
	cfg.Device = "auto"
	cfg.DefaultModel = "sam_base"
	cfg.Models = map[string]config.ModelEntry{
		"sam_base": {
			Family:     "sam1",
			Type:       "vit_b",
			Checkpoint: "sam_vit_b.pth",
			Preset:     "default",
		},
	}
	cfg.Presets = map[string]map[string]types.Params{
		"sam_base": {
			"default": {
				"points_per_side":                8,
				"pred_iou_thresh":                0.5,
				"stability_score_thresh":         0.95,
				"crop_n_layers":                  0,
				"crop_n_points_downscale_factor": 1,
				"min_mask_region_area":           16,
				"output_mode":                    "binary_mask",
			},
		},
	}
	if err := os.MkdirAll(cfg.Application.ModelFolder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Application.ModelFolder, "sam_vit_b.pth"), []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func threeRegionInput() Input {
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
	return Input{
		Path:        "/images/cell_007.tif",
		Frame:       f,
		Info:        types.ImageInfo{Path: "/images/cell_007.tif", Width: 64, Height: 64, Channels: 3, Dtype: "uint8"},
		SourceBytes: []byte("pretend-tiff-bytes"),
	}
}

func TestRunEndToEnd(t *testing.T) {
	r := New(testConfig(t), stubDetector{})
	r.Isolated = false

	c, err := r.Run(context.Background(), "", "", threeRegionInput())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(c.Masks) != 3 {
		t.Fatalf("got %d masks, want 3", len(c.Masks))
	}
	for i, m := range c.Masks {
		if m.Confidence <= 0 || m.Confidence > 1 {
			t.Fatalf("mask %d confidence = %v", i, m.Confidence)
		}
		if m.TrackID != types.TrackNone {
			t.Fatalf("mask %d track id = %d, want TrackNone", i, m.TrackID)
		}
		if m.Raster.Width != 64 || m.Raster.Height != 64 {
			t.Fatalf("mask %d raster %dx%d", i, m.Raster.Width, m.Raster.Height)
		}
	}
	if c.Model.ModelKey != "sam_base" || c.Model.Preset != "default" || c.Model.Family != "sam1" {
		t.Fatalf("model info = %+v", c.Model)
	}
	if c.Model.CheckpointSHA256 == "" {
		t.Fatal("checkpoint digest missing from provenance")
	}
	if c.Run.RunID == "" || c.Run.Filtering != "none" {
		t.Fatalf("run info = %+v", c.Run)
	}
	if c.Run.EndTime.Before(c.Run.StartTime) {
		t.Fatal("end time precedes start time")
	}

	path, err := r.Save(c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "cell_007.sam_base.default.maskc" {
		t.Fatalf("canonical name = %q", filepath.Base(path))
	}

	back, err := r.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(back.SourceBytes, c.SourceBytes) {
		t.Fatal("source bytes changed across persistence")
	}
	if len(back.Masks) != len(c.Masks) {
		t.Fatalf("mask count changed: %d vs %d", len(back.Masks), len(c.Masks))
	}
	for i := range c.Masks {
		for j := range c.Masks[i].Raster.Pix {
			if back.Masks[i].Raster.Pix[j] != c.Masks[i].Raster.Pix[j] {
				t.Fatalf("mask %d raster changed at %d", i, j)
			}
		}
		if back.Masks[i].Area != c.Masks[i].Area || back.Masks[i].TrackID != c.Masks[i].TrackID {
			t.Fatalf("mask %d scalars changed", i)
		}
	}
}

func TestRunUnknownPreset(t *testing.T) {
	r := New(testConfig(t), stubDetector{})
	r.Isolated = false
	_, err := r.Run(context.Background(), "sam_base", "ultra", threeRegionInput())
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestRunUnknownModel(t *testing.T) {
	r := New(testConfig(t), stubDetector{})
	r.Isolated = false
	_, err := r.Run(context.Background(), "nope", "", threeRegionInput())
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestRunRejectsInvalidFrame(t *testing.T) {
	r := New(testConfig(t), stubDetector{})
	r.Isolated = false
	in := threeRegionInput()
	in.Frame = types.Frame{Width: 2, Height: 2, Pix: []byte{1}}
	_, err := r.Run(context.Background(), "", "", in)
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestOutputPathIsDeterministic(t *testing.T) {
	r := New(testConfig(t), stubDetector{})
	a, err := r.OutputPath("/images/x.tif", "sam_base", "default")
	if err != nil {
		t.Fatalf("OutputPath: %v", err)
	}
	b, _ := r.OutputPath("/images/x.tif", "sam_base", "default")
	if a != b {
		t.Fatalf("paths differ: %q vs %q", a, b)
	}
}

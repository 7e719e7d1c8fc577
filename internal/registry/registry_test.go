package registry

import (
	"strings"
	"testing"

	"maskd/internal/config"
	"maskd/pkg/types"
)

// stubDetector fakes accelerator presence.
type stubDetector struct {
	found  bool
	detail string
}

func (s stubDetector) Detect() (bool, string) { return s.found, s.detail }

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Application.ModelFolder = dir
	cfg.Device = "cpu"
	cfg.Models = map[string]config.ModelEntry{
		"sam_base": {
			Family:     "sam1",
			Type:       "vit_b",
			Checkpoint: "sam_vit_b.pth",
			Preset:     "default",
		},
		"sam2_large": {
			Family:     "sam2",
			Checkpoint: "sam2_large.pt",
			ConfigFile: "sam2_large.yaml",
		},
	}
	return cfg
}

func TestResolveDevice(t *testing.T) {
	cases := []struct {
		requested string
		gpu       bool
		want      string
		wantErr   bool
	}{
		{"cpu", true, "cpu", false},
		{"cpu", false, "cpu", false},
		{"", false, "cpu", false},
		{"cuda", true, "cuda", false},
		{"cuda", false, "", true},
		{"auto", true, "cuda", false},
		{"auto", false, "cpu", false},
		{"tpu", true, "", true},
	}
	for _, tc := range cases {
		r := New(config.Default(), stubDetector{found: tc.gpu})
		got, err := r.ResolveDevice(tc.requested)
		if tc.wantErr {
			if !types.IsConfiguration(err) {
				t.Errorf("ResolveDevice(%q, gpu=%v) err = %v, want ConfigurationError", tc.requested, tc.gpu, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveDevice(%q, gpu=%v): %v", tc.requested, tc.gpu, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveDevice(%q, gpu=%v) = %q, want %q", tc.requested, tc.gpu, got, tc.want)
		}
	}
}

func TestResolveUnknownKeyListsModels(t *testing.T) {
	r := New(testConfig(t.TempDir()), stubDetector{})
	_, err := r.Resolve("missing")
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %T, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "sam_base") || !strings.Contains(err.Error(), "sam2_large") {
		t.Fatalf("error %q does not list configured models", err.Error())
	}
}

func TestResolveValidatesFamilyRequirements(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Models["bad_sam1"] = config.ModelEntry{Family: "sam1", Checkpoint: "c.pth"}
	cfg.Models["bad_sam2"] = config.ModelEntry{Family: "sam2", Checkpoint: "c.pt"}
	cfg.Models["bad_family"] = config.ModelEntry{Family: "sam9", Checkpoint: "c.pt"}
	r := New(cfg, stubDetector{})

	for _, key := range []string{"bad_sam1", "bad_sam2", "bad_family"} {
		if _, err := r.Resolve(key); !types.IsConfiguration(err) {
			t.Errorf("Resolve(%q) err = %v, want ConfigurationError", key, err)
		}
	}
}

func TestResolveDescriptor(t *testing.T) {
	r := New(testConfig(t.TempDir()), stubDetector{})
	desc, err := r.Resolve("sam_base")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if desc.Family != types.FamilySAM1 {
		t.Fatalf("family = %v, want sam1", desc.Family)
	}
	if desc.Architecture != "vit_b" || desc.Device != "cpu" || desc.DefaultPreset != "default" {
		t.Fatalf("descriptor = %+v", desc)
	}
}

func TestResolveAutoFallsBackToCPU(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Device = "auto"
	r := New(cfg, stubDetector{found: false})
	desc, err := r.Resolve("sam_base")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if desc.Device != "cpu" {
		t.Fatalf("device = %q, want cpu fallback", desc.Device)
	}
}

package presets

import (
	"strings"
	"testing"

	"maskd/pkg/types"
)

func testGroups() map[string]map[string]types.Params {
	return map[string]map[string]types.Params{
		"sam_base": {
			"default": {"points_per_side": 32, "pred_iou_thresh": 0.88},
			"fine":    {"points_per_side": 64, "pred_iou_thresh": 0.92},
			"coarse":  {"points_per_side": 16, "pred_iou_thresh": 0.8},
		},
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	r := NewResolver(testGroups())
	p, err := r.Resolve("sam_base", "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v, _ := p.Int("points_per_side"); v != 32 {
		t.Fatalf("points_per_side = %d, want 32", v)
	}

	p["points_per_side"] = 999
	again, err := r.Resolve("sam_base", "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v, _ := again.Int("points_per_side"); v != 32 {
		t.Fatal("mutation through a resolved bag leaked into shared state")
	}
}

func TestResolveUnknownPresetListsAvailable(t *testing.T) {
	r := NewResolver(testGroups())
	_, err := r.Resolve("sam_base", "ultra")
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %T, want ConfigurationError", err)
	}
	msg := err.Error()
	for _, name := range []string{"coarse", "default", "fine"} {
		if !strings.Contains(msg, name) {
			t.Fatalf("error %q does not list preset %q", msg, name)
		}
	}
}

func TestResolveUnknownModelListsGroups(t *testing.T) {
	r := NewResolver(testGroups())
	_, err := r.Resolve("nope", "default")
	if !types.IsConfiguration(err) {
		t.Fatalf("err = %T, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "sam_base") {
		t.Fatalf("error %q does not list group sam_base", err.Error())
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewResolver(testGroups())
	names := r.Names("sam_base")
	want := []string{"coarse", "default", "fine"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}
	if r.Names("other") != nil {
		t.Fatal("Names for unknown key should be nil")
	}
}

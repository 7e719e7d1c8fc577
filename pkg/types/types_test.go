package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseFamily(t *testing.T) {
	cases := []struct {
		in      string
		want    Family
		wantErr bool
	}{
		{"sam1", FamilySAM1, false},
		{"sam2", FamilySAM2, false},
		{"sam21", FamilySAM21, false},
		{"sam2.1", FamilySAM21, false},
		{"sam3", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseFamily(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFamily(%q) accepted invalid input", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFamily(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestFamilyProperties(t *testing.T) {
	if FamilySAM1.RequiresConfigFile() {
		t.Error("sam1 must not require a config file")
	}
	if !FamilySAM2.RequiresConfigFile() || !FamilySAM21.RequiresConfigFile() {
		t.Error("sam2 and sam21 require config files")
	}
	if FamilySAM1.Tracks() || FamilySAM2.Tracks() {
		t.Error("only sam21 tracks")
	}
	if !FamilySAM21.Tracks() {
		t.Error("sam21 must track")
	}
}

func TestFamilyJSONRoundTrip(t *testing.T) {
	for _, f := range []Family{FamilySAM1, FamilySAM2, FamilySAM21} {
		b, err := json.Marshal(f)
		if err != nil {
			t.Fatalf("marshal %v: %v", f, err)
		}
		var back Family
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != f {
			t.Fatalf("round trip %v -> %s -> %v", f, b, back)
		}
	}
}

func TestParamsConversions(t *testing.T) {
	p := Params{
		"from_int":     3,
		"from_int64":   int64(4),
		"from_float":   5.0,
		"ratio":        0.25,
		"mode":         "binary_mask",
		"not_a_number": "x",
	}
	for key, want := range map[string]int{"from_int": 3, "from_int64": 4, "from_float": 5} {
		if got, ok := p.Int(key); !ok || got != want {
			t.Errorf("Int(%q) = %d, %v", key, got, ok)
		}
	}
	if v, ok := p.Float("ratio"); !ok || v != 0.25 {
		t.Errorf("Float(ratio) = %v, %v", v, ok)
	}
	if v, ok := p.Float("from_int"); !ok || v != 3 {
		t.Errorf("Float(from_int) = %v, %v", v, ok)
	}
	if s, ok := p.String("mode"); !ok || s != "binary_mask" {
		t.Errorf("String(mode) = %q, %v", s, ok)
	}
	if _, ok := p.Int("not_a_number"); ok {
		t.Error("Int accepted a string")
	}
	if _, ok := p.Int("missing"); ok {
		t.Error("Int accepted a missing key")
	}
	if !p.Has("mode") || p.Has("missing") {
		t.Error("Has misreports presence")
	}
}

func TestErrorPredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
	}{
		{Configuration("bad %s", "preset"), IsConfiguration},
		{DownloadError{URL: "http://x", Err: errors.New("refused")}, IsDownload},
		{CrashError{ExitCode: 139}, IsCrash},
		{TimeoutError{Timeout: time.Second}, IsTimeout},
		{InferenceError{Detail: "boom"}, IsInference},
		{StorageError{Op: "write", Path: "/p", Err: errors.New("disk full")}, IsStorage},
	}
	preds := []func(error) bool{IsConfiguration, IsDownload, IsCrash, IsTimeout, IsInference, IsStorage}
	for i, tc := range cases {
		if !tc.pred(tc.err) {
			t.Errorf("case %d: own predicate rejected %v", i, tc.err)
		}
		// Wrapped errors must still match.
		if !tc.pred(fmt.Errorf("context: %w", tc.err)) {
			t.Errorf("case %d: predicate rejected wrapped %v", i, tc.err)
		}
		matches := 0
		for _, p := range preds {
			if p(tc.err) {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("case %d: %v matched %d predicates, want exactly 1", i, tc.err, matches)
		}
	}
}

func TestFrameValidate(t *testing.T) {
	if err := NewFrame(4, 3).Validate(); err != nil {
		t.Fatalf("valid frame rejected: %v", err)
	}
	bad := Frame{Width: 4, Height: 3, Pix: make([]byte, 5)}
	if err := bad.Validate(); err == nil {
		t.Fatal("mismatched buffer accepted")
	}
	if err := (Frame{}).Validate(); err == nil {
		t.Fatal("zero frame accepted")
	}
}

func TestBitmapCount(t *testing.T) {
	bm := NewBitmap(4, 4)
	bm.Set(0, 0)
	bm.Set(3, 3)
	bm.Set(1, 2)
	if bm.Count() != 3 {
		t.Fatalf("Count = %d, want 3", bm.Count())
	}
	if !bm.At(1, 2) || bm.At(2, 1) {
		t.Fatal("At misreports membership")
	}
}

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestListImagesStableIndices(t *testing.T) {
	dir := t.TempDir()
	red := color.NRGBA{R: 255, A: 255}
	writePNG(t, filepath.Join(dir, "b.png"), 2, 2, red)
	writePNG(t, filepath.Join(dir, "a.png"), 2, 2, red)
	writePNG(t, filepath.Join(dir, "nested", "c.png"), 2, 2, red)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := ListImages(dir, []string{"png"})
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("found %d images, want 3", len(records))
	}
	if records[0].Name != "a.png" || records[1].Name != "b.png" || records[2].Name != "c.png" {
		t.Fatalf("order = %v", records)
	}
	for i, r := range records {
		if r.Index != i {
			t.Fatalf("record %d has index %d", i, r.Index)
		}
	}

	if rec, ok := FindByIndex(records, 1); !ok || rec.Name != "b.png" {
		t.Fatalf("FindByIndex(1) = %+v, %v", rec, ok)
	}
	if _, ok := FindByIndex(records, 9); ok {
		t.Fatal("FindByIndex accepted an out-of-range index")
	}
	if rec, ok := FindByName(records, "c.png"); !ok || rec.Index != 2 {
		t.Fatalf("FindByName(c.png) = %+v, %v", rec, ok)
	}
	if _, ok := FindByName(records, "zzz.png"); ok {
		t.Fatal("FindByName matched a missing name")
	}
}

func TestListImagesMissingFolder(t *testing.T) {
	records, err := ListImages(filepath.Join(t.TempDir(), "nope"), []string{"png"})
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %v, want empty", records)
	}
}

func TestLoadFrameDropsAlpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	writePNG(t, path, 5, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	frame, info, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame: %v", err)
	}
	if info.Width != 5 || info.Height != 4 || info.Channels != 3 || info.Dtype != "uint8" {
		t.Fatalf("info = %+v", info)
	}
	if info.Path != path {
		t.Fatalf("info path = %q", info.Path)
	}
	r, g, b := frame.RGB(2, 2)
	if r != 10 || g != 20 || b != 30 {
		t.Fatalf("pixel = %d,%d,%d", r, g, b)
	}
	if err := frame.Validate(); err != nil {
		t.Fatalf("frame invalid: %v", err)
	}
}

func TestDecodeFrameFromBytes(t *testing.T) {
	data := writePNG(t, filepath.Join(t.TempDir(), "m.png"), 3, 3, color.NRGBA{G: 200, A: 255})
	frame, info, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if info.Width != 3 || info.Height != 3 {
		t.Fatalf("info = %+v", info)
	}
	if _, g, _ := frame.RGB(1, 1); g != 200 {
		t.Fatalf("green = %d, want 200", g)
	}
	if _, _, err := DecodeFrame([]byte("not an image")); err == nil {
		t.Fatal("DecodeFrame accepted garbage")
	}
}

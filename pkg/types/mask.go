package types

// TrackNone is the reserved track-id sentinel for masks that carry no
// tracking identifier (all single-image families).
const TrackNone int64 = -1

// Bitmap is a binary membership raster, one byte per pixel (0 or 1),
// row-major. It is the compact form raw masks use to cross the worker
// process boundary.
type Bitmap struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
}

// NewBitmap allocates a zeroed w×h bitmap.
func NewBitmap(w, h int) Bitmap {
	return Bitmap{Width: w, Height: h, Pix: make([]byte, w*h)}
}

// At reports membership at (x, y).
func (b Bitmap) At(x, y int) bool { return b.Pix[y*b.Width+x] != 0 }

// Set marks (x, y) as a member.
func (b Bitmap) Set(x, y int) { b.Pix[y*b.Width+x] = 1 }

// Count returns the number of member pixels.
func (b Bitmap) Count() int64 {
	var n int64
	for _, v := range b.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Raster is a per-pixel membership raster with values in [0, 1],
// row-major. The unified mask record uses it; the store quantizes it to
// 8 bits on disk.
type Raster struct {
	Width  int
	Height int
	Pix    []float32
}

// NewRaster allocates a zeroed w×h raster.
func NewRaster(w, h int) Raster {
	return Raster{Width: w, Height: h, Pix: make([]float32, w*h)}
}

// At returns the membership value at (x, y).
func (r Raster) At(x, y int) float32 { return r.Pix[y*r.Width+x] }

// Set stores the membership value at (x, y).
func (r Raster) Set(x, y int, v float32) { r.Pix[y*r.Width+x] = v }

// RawMask is one family-specific mask entry as returned by a Generate
// call, before normalization. SAM1 populates PredictedIoU; SAM2 and
// SAM2.1 populate Score; only SAM2.1 may populate TrackID.
type RawMask struct {
	Segmentation Bitmap         `json:"segmentation"`
	PredictedIoU *float64       `json:"predicted_iou,omitempty"`
	Score        *float64       `json:"score,omitempty"`
	BBox         []int64        `json:"bbox,omitempty"`
	Area         *int64         `json:"area,omitempty"`
	TrackID      *int64         `json:"track_id,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// MaskRecord is the unified mask schema shared by all families.
// Invariants: Confidence in [0, 1]; raster dimensions match the source
// image; TrackID is TrackNone unless the family tracks.
type MaskRecord struct {
	Raster     Raster
	Confidence float64
	BBox       []int64 // [x, y, w, h]; empty when absent
	Area       int64   // pixel count; 0 when unset
	TrackID    int64   // TrackNone when absent
	Metadata   map[string]any
}

// Package store persists one segmentation run as a single self-contained
// binary container: the source image bytes verbatim, the ordered mask
// list, and four metadata sections, and reads containers back in full or
// in metadata-only summary form.
//
// Container layout, version 1, little-endian:
//
//	magic   "MASKC\x00"
//	version u16
//	image   u64 length + source bytes (verbatim, never re-encoded)
//	masks   u32 count, then per mask:
//	          u32 height, u32 width
//	          u64 length + gzip(8-bit quantized raster, row-major)
//	          f64 confidence
//	          u32 bbox count (0 or 4) + count×i64
//	          i64 area (0 when unset)
//	          i64 track id (-1 when absent)
//	          u32 length + metadata JSON
//	meta    4 × (u64 length + JSON): image, model, preset, run info
package store

import (
	"strings"
)

// Ext is the container file extension.
const Ext = ".maskc"

var magic = [6]byte{'M', 'A', 'S', 'K', 'C', 0}

const formatVersion uint16 = 1

// quantize maps a membership value in [0, 1] to its 8-bit on-disk form.
func quantize(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// dequantize reconstructs membership by thresholding at the midpoint.
// Exact for any pixel whose source value was exactly 0 or exactly 1.
func dequantize(q uint8) float32 {
	if q > 127 {
		return 1
	}
	return 0
}

// sanitize normalizes a model key or preset name for use as a file name
// component. Path separators are stripped so a hostile key cannot place
// the container outside the mask folder.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return -1
		}
		return r
	}, s)
}

package masks

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"maskd/pkg/types"
)

// palette cycles through visually distinct overlay colors. Colors are
// assigned by mask index so renders are reproducible.
var palette = []color.NRGBA{
	{R: 230, G: 57, B: 70},
	{R: 69, G: 123, B: 157},
	{R: 42, G: 157, B: 143},
	{R: 233, G: 196, B: 106},
	{R: 155, G: 93, B: 229},
	{R: 244, G: 162, B: 97},
	{R: 38, G: 70, B: 83},
	{R: 144, G: 190, B: 109},
}

// RenderOverlay blends each mask's region onto the source frame at 50%
// opacity and outlines its bounding box. The result is suitable for CLI
// export and the HTTP overlay endpoint.
func RenderOverlay(frame types.Frame, records []types.MaskRecord) (image.Image, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	w, h := frame.Width, frame.Height
	base := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := frame.RGB(x, y)
			base.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}

	for i, rec := range records {
		if rec.Raster.Width != w || rec.Raster.Height != h {
			return nil, fmt.Errorf("mask %d raster %dx%d does not match frame %dx%d",
				i, rec.Raster.Width, rec.Raster.Height, w, h)
		}
		c := palette[i%len(palette)]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if rec.Raster.At(x, y) < 0.5 {
					continue
				}
				p := base.NRGBAAt(x, y)
				base.SetNRGBA(x, y, color.NRGBA{
					R: uint8((uint16(p.R) + uint16(c.R)) / 2),
					G: uint8((uint16(p.G) + uint16(c.G)) / 2),
					B: uint8((uint16(p.B) + uint16(c.B)) / 2),
					A: 255,
				})
			}
		}
	}

	dc := gg.NewContextForImage(base)
	for i, rec := range records {
		if len(rec.BBox) != 4 {
			continue
		}
		c := palette[i%len(palette)]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
		dc.SetLineWidth(1)
		dc.DrawRectangle(float64(rec.BBox[0]), float64(rec.BBox[1]), float64(rec.BBox[2]), float64(rec.BBox[3]))
		dc.Stroke()
	}
	return dc.Image(), nil
}

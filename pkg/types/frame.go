package types

import "fmt"

// Frame is a decoded image buffer in fixed channel order: 8-bit RGB,
// three bytes per pixel, row-major. It is the only pixel representation
// the adapters and the worker boundary accept.
type Frame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
}

// NewFrame allocates a zeroed w×h RGB frame.
func NewFrame(w, h int) Frame {
	return Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
}

// RGB returns the pixel at (x, y).
func (f Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB stores the pixel at (x, y).
func (f Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Validate checks the buffer shape.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("frame buffer length %d does not match %dx%d RGB", len(f.Pix), f.Width, f.Height)
	}
	return nil
}

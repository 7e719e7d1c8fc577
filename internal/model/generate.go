package model

import (
	"math"

	"maskd/pkg/types"
)

// generatorConfig is the common parameter set behind the family presets.
type generatorConfig struct {
	pointsPerSide   int
	predIoUThresh   float64
	stabilityThresh float64
	cropLayers      int
	downscale       int
	minRegionArea   int
}

// region is one detected area before it is shaped into a family-specific
// raw mask.
type region struct {
	bitmap types.Bitmap
	bbox   [4]int64 // x, y, w, h
	area   int64
	score  float64
}

// generateRegions runs the grid-seeded region-growing pass shared by the
// families. Seeds are laid out on a pointsPerSide grid (denser layers
// when cropLayers > 0); each unclaimed seed grows a connected region of
// similar color. Output order is seed-scan order and fully deterministic.
func generateRegions(frame types.Frame, cfg generatorConfig) []region {
	w, h := frame.Width, frame.Height
	claimed := make([]bool, w*h)

	// Color tolerance follows the stability threshold: stricter presets
	// grow tighter regions.
	tol := int(math.Round((1 - cfg.stabilityThresh) * 255))
	if tol < 4 {
		tol = 4
	}

	downscale := cfg.downscale
	if downscale < 1 {
		downscale = 1
	}

	var regions []region
	for layer := 0; layer <= cfg.cropLayers; layer++ {
		n := cfg.pointsPerSide
		for i := 0; i < layer; i++ {
			n /= downscale
		}
		if n < 1 {
			break
		}
		for gy := 0; gy < n; gy++ {
			for gx := 0; gx < n; gx++ {
				sx := (gx*2 + 1) * w / (n * 2)
				sy := (gy*2 + 1) * h / (n * 2)
				if claimed[sy*w+sx] {
					continue
				}
				reg := growRegion(frame, claimed, sx, sy, tol)
				if reg.area < int64(cfg.minRegionArea) {
					continue
				}
				if reg.score < cfg.predIoUThresh {
					continue
				}
				regions = append(regions, reg)
			}
		}
	}
	return regions
}

// growRegion flood-fills the connected area around (sx, sy) whose color
// stays within tol of the seed pixel, claiming every visited pixel.
func growRegion(frame types.Frame, claimed []bool, sx, sy, tol int) region {
	w, h := frame.Width, frame.Height
	bm := types.NewBitmap(w, h)
	sr, sg, sb := frame.RGB(sx, sy)

	type point struct{ x, y int }
	queue := []point{{sx, sy}}
	claimed[sy*w+sx] = true
	bm.Set(sx, sy)

	minX, minY, maxX, maxY := sx, sy, sx, sy
	var area int64 = 1
	var sumR, sumG, sumB int64 = int64(sr), int64(sg), int64(sb)

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, d := range [4]point{{0, -1}, {-1, 0}, {1, 0}, {0, 1}} {
			nx, ny := p.x+d.x, p.y+d.y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if claimed[idx] {
				continue
			}
			r, g, b := frame.RGB(nx, ny)
			if chebyshev(r, g, b, sr, sg, sb) > tol {
				continue
			}
			claimed[idx] = true
			bm.Set(nx, ny)
			area++
			sumR += int64(r)
			sumG += int64(g)
			sumB += int64(b)
			if nx < minX {
				minX = nx
			}
			if ny < minY {
				minY = ny
			}
			if nx > maxX {
				maxX = nx
			}
			if ny > maxY {
				maxY = ny
			}
			queue = append(queue, point{nx, ny})
		}
	}

	// Region quality: fraction of member pixels close to the region mean.
	meanR := uint8(sumR / area)
	meanG := uint8(sumG / area)
	meanB := uint8(sumB / area)
	var near int64
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !bm.At(x, y) {
				continue
			}
			r, g, b := frame.RGB(x, y)
			if chebyshev(r, g, b, meanR, meanG, meanB) <= tol/2+1 {
				near++
			}
		}
	}

	return region{
		bitmap: bm,
		bbox:   [4]int64{int64(minX), int64(minY), int64(maxX - minX + 1), int64(maxY - minY + 1)},
		area:   area,
		score:  float64(near) / float64(area),
	}
}

func chebyshev(r1, g1, b1, r2, g2, b2 uint8) int {
	d := absDiff(r1, r2)
	if g := absDiff(g1, g2); g > d {
		d = g
	}
	if b := absDiff(b1, b2); b > d {
		d = b
	}
	return d
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

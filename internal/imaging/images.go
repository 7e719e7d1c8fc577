// Package imaging discovers images under the configured image folder and
// decodes them into the fixed-channel-order frame the adapters accept.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	disimaging "github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/pkg/types"
)

// Record is one discovered image.
type Record struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

// ListImages walks folder recursively and returns the images matching
// the configured extensions, sorted by path so indices are stable across
// invocations. A missing folder lists as empty.
func ListImages(folder string, extensions []string) ([]Record, error) {
	root, err := fsutil.ExpandHome(folder)
	if err != nil {
		return nil, err
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts["."+strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	var records []Record
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		records = append(records, Record{Path: path, Name: d.Name(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan image folder %s: %w", root, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	for i := range records {
		records[i].Index = i
	}
	return records, nil
}

// FindByIndex returns the record at a listing index.
func FindByIndex(records []Record, index int) (Record, bool) {
	if index < 0 || index >= len(records) {
		return Record{}, false
	}
	return records[index], true
}

// FindByName returns the record whose base name matches.
func FindByName(records []Record, name string) (Record, bool) {
	for _, r := range records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// LoadFrame decodes the image at path into an 8-bit RGB frame (alpha
// removed) plus its info block. The raw file bytes are not returned
// here; the store persists them verbatim via os.ReadFile.
func LoadFrame(path string) (types.Frame, types.ImageInfo, error) {
	img, err := disimaging.Open(path)
	if err != nil {
		return types.Frame{}, types.ImageInfo{}, fmt.Errorf("open image %s: %w", path, err)
	}
	frame, info := frameOf(img)
	info.Path = path
	log.Debug().Str("path", path).Int("width", info.Width).Int("height", info.Height).Msg("image decoded")
	return frame, info, nil
}

// DecodeFrame decodes in-memory image bytes, e.g. the verbatim source
// bytes stored inside a container.
func DecodeFrame(data []byte) (types.Frame, types.ImageInfo, error) {
	img, err := disimaging.Decode(bytes.NewReader(data))
	if err != nil {
		return types.Frame{}, types.ImageInfo{}, fmt.Errorf("decode image bytes: %w", err)
	}
	frame, info := frameOf(img)
	return frame, info, nil
}

func frameOf(img image.Image) (types.Frame, types.ImageInfo) {
	nrgba := disimaging.Clone(img)
	bounds := nrgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	frame := types.NewFrame(w, h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := 0; x < w; x++ {
			frame.SetRGB(x, y, row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return frame, types.ImageInfo{Width: w, Height: h, Channels: 3, Dtype: "uint8"}
}

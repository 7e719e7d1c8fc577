package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"maskd/internal/common/fsutil"
	"maskd/pkg/types"
)

// OutputPath derives the canonical container path for an (image, model,
// preset) triple. The same triple always names the same path, so re-run
// detection is a plain existence check for the caller.
func OutputPath(maskFolder, imagePath, modelKey, preset string) string {
	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	name := fmt.Sprintf("%s.%s.%s%s", stem, sanitize(modelKey), sanitize(preset), Ext)
	return filepath.Join(maskFolder, name)
}

// Write persists a container to path. Source bytes are stored verbatim;
// rasters are quantized to 8 bits and compressed; all scalar fields and
// the four metadata blocks are stored exactly. The write is atomic, but
// concurrent writers to the same path are not serialized here.
func Write(path string, masksList []types.MaskRecord, sourceBytes []byte,
	imageInfo types.ImageInfo, modelInfo types.ModelInfo,
	presetInfo types.Params, runInfo types.RunInfo) (string, error) {

	var buf bytes.Buffer
	if err := encodeContainer(&buf, masksList, sourceBytes, imageInfo, modelInfo, presetInfo, runInfo); err != nil {
		return "", types.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", types.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := fsutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", types.StorageError{Op: "write", Path: path, Err: err}
	}
	log.Debug().Str("path", path).Int("masks", len(masksList)).Int("bytes", buf.Len()).
		Msg("container written")
	return path, nil
}

func encodeContainer(buf *bytes.Buffer, masksList []types.MaskRecord, sourceBytes []byte,
	imageInfo types.ImageInfo, modelInfo types.ModelInfo,
	presetInfo types.Params, runInfo types.RunInfo) error {

	buf.Write(magic[:])
	le(buf, formatVersion)

	le(buf, uint64(len(sourceBytes)))
	buf.Write(sourceBytes)

	le(buf, uint32(len(masksList)))
	for i, m := range masksList {
		if err := encodeMask(buf, m); err != nil {
			return fmt.Errorf("mask %d: %w", i, err)
		}
	}

	for _, section := range []any{imageInfo, modelInfo, presetInfo, runInfo} {
		b, err := json.Marshal(section)
		if err != nil {
			return fmt.Errorf("encode metadata section: %w", err)
		}
		le(buf, uint64(len(b)))
		buf.Write(b)
	}
	return nil
}

func encodeMask(buf *bytes.Buffer, m types.MaskRecord) error {
	r := m.Raster
	if len(r.Pix) != r.Width*r.Height {
		return fmt.Errorf("raster buffer length %d does not match %dx%d", len(r.Pix), r.Width, r.Height)
	}
	le(buf, uint32(r.Height))
	le(buf, uint32(r.Width))

	quant := make([]byte, len(r.Pix))
	for i, v := range r.Pix {
		quant[i] = quantize(v)
	}
	var comp bytes.Buffer
	zw := gzip.NewWriter(&comp)
	if _, err := zw.Write(quant); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	le(buf, uint64(comp.Len()))
	buf.Write(comp.Bytes())

	le(buf, m.Confidence)

	if len(m.BBox) == 4 {
		le(buf, uint32(4))
		for _, v := range m.BBox {
			le(buf, v)
		}
	} else {
		le(buf, uint32(0))
	}

	le(buf, m.Area)
	le(buf, m.TrackID)

	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode mask metadata: %w", err)
	}
	le(buf, uint32(len(mb)))
	buf.Write(mb)
	return nil
}

// le writes one fixed-size little-endian value; bytes.Buffer writes
// cannot fail.
func le(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"maskd/pkg/types"
)

// maxSectionSize caps any single length-prefixed section so a corrupted
// length field cannot drive an absurd allocation.
const maxSectionSize = 1 << 32

// Read loads a full container: source bytes and scalars exactly, rasters
// by midpoint thresholding.
func Read(path string) (types.MaskContainer, error) {
	c, _, err := read(path, true)
	return c, err
}

// ReadSummary loads the metadata-only view of a container without
// decompressing raster payloads.
func ReadSummary(path string) (types.ContainerSummary, error) {
	c, imageSize, err := read(path, false)
	if err != nil {
		return types.ContainerSummary{}, err
	}
	return types.ContainerSummary{
		Path:      path,
		MaskCount: len(c.Masks),
		ImageSize: imageSize,
		Image:     c.Image,
		Model:     c.Model,
		Preset:    c.Preset,
		Run:       c.Run,
	}, nil
}

// List returns the sorted container paths directly inside folder. A
// missing folder lists as empty rather than failing.
func List(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.StorageError{Op: "list", Path: folder, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), Ext) {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func read(path string, withRasters bool) (types.MaskContainer, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.MaskContainer{}, 0, types.StorageError{Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	c, imageSize, err := decodeContainer(bufio.NewReaderSize(f, 1<<16), withRasters)
	if err != nil {
		return types.MaskContainer{}, 0, types.StorageError{Op: "read", Path: path, Err: err}
	}
	return c, imageSize, nil
}

func decodeContainer(r *bufio.Reader, withRasters bool) (types.MaskContainer, int64, error) {
	var c types.MaskContainer

	var gotMagic [6]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return c, 0, fmt.Errorf("read magic: %w", err)
	}
	if gotMagic != magic {
		return c, 0, fmt.Errorf("not a mask container (bad magic %q)", gotMagic[:])
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return c, 0, fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return c, 0, fmt.Errorf("unsupported container version %d", version)
	}

	imageLen, err := readLen64(r)
	if err != nil {
		return c, 0, fmt.Errorf("read image length: %w", err)
	}
	if withRasters {
		c.SourceBytes = make([]byte, imageLen)
		if _, err := io.ReadFull(r, c.SourceBytes); err != nil {
			return c, 0, fmt.Errorf("read image bytes: %w", err)
		}
	} else {
		if _, err := r.Discard(int(imageLen)); err != nil {
			return c, 0, fmt.Errorf("skip image bytes: %w", err)
		}
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return c, 0, fmt.Errorf("read mask count: %w", err)
	}
	c.Masks = make([]types.MaskRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		m, err := decodeMask(r, withRasters)
		if err != nil {
			return c, 0, fmt.Errorf("mask %d: %w", i, err)
		}
		c.Masks = append(c.Masks, m)
	}

	sections := []any{&c.Image, &c.Model, &c.Preset, &c.Run}
	names := []string{"image_info", "model_info", "preset_info", "run_info"}
	for i, dst := range sections {
		n, err := readLen64(r)
		if err != nil {
			return c, 0, fmt.Errorf("missing %s section: %w", names[i], err)
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return c, 0, fmt.Errorf("read %s section: %w", names[i], err)
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return c, 0, fmt.Errorf("decode %s section: %w", names[i], err)
		}
	}
	return c, int64(imageLen), nil
}

func decodeMask(r *bufio.Reader, withRaster bool) (types.MaskRecord, error) {
	var m types.MaskRecord
	var height, width uint32
	if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
		return m, fmt.Errorf("read raster height: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return m, fmt.Errorf("read raster width: %w", err)
	}
	compLen, err := readLen64(r)
	if err != nil {
		return m, fmt.Errorf("read raster length: %w", err)
	}
	pixels := int64(height) * int64(width)
	if pixels > maxSectionSize {
		return m, fmt.Errorf("raster dimensions %dx%d exceed limit", width, height)
	}

	if withRaster {
		lr := io.LimitReader(r, int64(compLen))
		zr, err := gzip.NewReader(lr)
		if err != nil {
			return m, fmt.Errorf("open raster stream: %w", err)
		}
		quant := make([]byte, int(pixels))
		if _, err := io.ReadFull(zr, quant); err != nil {
			return m, fmt.Errorf("decompress raster: %w", err)
		}
		if err := zr.Close(); err != nil {
			return m, fmt.Errorf("close raster stream: %w", err)
		}
		// The gzip reader may leave trailer bytes unconsumed; stay aligned
		// with the next field.
		if _, err := io.Copy(io.Discard, lr); err != nil {
			return m, fmt.Errorf("drain raster section: %w", err)
		}
		m.Raster = types.NewRaster(int(width), int(height))
		for i, q := range quant {
			m.Raster.Pix[i] = dequantize(q)
		}
	} else {
		if _, err := r.Discard(int(compLen)); err != nil {
			return m, fmt.Errorf("skip raster: %w", err)
		}
		m.Raster = types.Raster{Width: int(width), Height: int(height)}
	}

	if err := binary.Read(r, binary.LittleEndian, &m.Confidence); err != nil {
		return m, fmt.Errorf("read confidence: %w", err)
	}

	var bboxCount uint32
	if err := binary.Read(r, binary.LittleEndian, &bboxCount); err != nil {
		return m, fmt.Errorf("read bbox count: %w", err)
	}
	switch bboxCount {
	case 0:
	case 4:
		m.BBox = make([]int64, 4)
		for i := range m.BBox {
			if err := binary.Read(r, binary.LittleEndian, &m.BBox[i]); err != nil {
				return m, fmt.Errorf("read bbox: %w", err)
			}
		}
	default:
		return m, fmt.Errorf("invalid bbox count %d", bboxCount)
	}

	if err := binary.Read(r, binary.LittleEndian, &m.Area); err != nil {
		return m, fmt.Errorf("read area: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &m.TrackID); err != nil {
		return m, fmt.Errorf("read track id: %w", err)
	}

	var metaLen uint32
	if err := binary.Read(r, binary.LittleEndian, &metaLen); err != nil {
		return m, fmt.Errorf("read metadata length: %w", err)
	}
	mb := make([]byte, metaLen)
	if _, err := io.ReadFull(r, mb); err != nil {
		return m, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(mb, &m.Metadata); err != nil {
		return m, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

func readLen64(r io.Reader) (uint64, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n > maxSectionSize {
		return 0, fmt.Errorf("section length %d exceeds limit", n)
	}
	return n, nil
}

// Package model implements the three segmentation-model families behind
// one adapter contract. Dispatch happens only through the family tag on
// the model descriptor.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"maskd/pkg/types"
)

// Adapter is the capability contract every family satisfies: load a
// model into an explicit handle, then run one inference pass over a
// decoded frame.
type Adapter interface {
	Family() types.Family
	// Load opens the descriptor's artifacts and returns a handle. The
	// handle is owned by the caller; it is never stored in shared state.
	Load(desc types.ModelDescriptor) (*Loaded, error)
	// Generate runs one inference pass. It validates params against the
	// family's required key set before any compute.
	Generate(m *Loaded, frame types.Frame, params types.Params) ([]types.RawMask, error)
}

// Loaded is an explicit model handle returned by Load and passed back to
// Generate by the same caller.
type Loaded struct {
	Key           string
	Family        types.Family
	Architecture  string
	Device        string
	CheckpointSHA string

	// points-per-side scale factor implied by the architecture or the
	// companion definition file.
	gridScale int
}

// ForFamily returns the adapter for a family tag.
func ForFamily(f types.Family) Adapter {
	switch f {
	case types.FamilySAM1:
		return sam1Adapter{}
	case types.FamilySAM2:
		return sam2Adapter{}
	default:
		return sam21Adapter{}
	}
}

// Load resolves the adapter from the descriptor's tag and loads the
// model.
func Load(desc types.ModelDescriptor) (*Loaded, error) {
	return ForFamily(desc.Family).Load(desc)
}

// Generate dispatches to the adapter matching the handle's family.
func Generate(m *Loaded, frame types.Frame, params types.Params) ([]types.RawMask, error) {
	return ForFamily(m.Family).Generate(m, frame, params)
}

// checkpointDigest opens the checkpoint, rejects empty files, and
// returns its hex SHA-256 as the checkpoint identity.
func checkpointDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", types.Configuration("open checkpoint %s: %v", path, err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", types.Configuration("read checkpoint %s: %v", path, err)
	}
	if n == 0 {
		return "", types.Configuration("checkpoint %s is empty", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// requireParams fails fast when a required generation key is absent, so
// a misconfigured preset never reaches the compute path.
func requireParams(family types.Family, params types.Params, keys []string) error {
	for _, k := range keys {
		if !params.Has(k) {
			return types.Configuration("family %s requires preset parameter %q", family, k)
		}
	}
	return nil
}

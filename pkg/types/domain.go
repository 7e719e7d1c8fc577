package types

import "fmt"

// Family identifies one of the three supported segmentation-model backends.
// All family dispatch goes through this tag; no other component derives the
// family from strings.
type Family int

const (
	// FamilySAM1 is the first-generation single-image family. It is built
	// from an architecture tag plus a checkpoint and needs no companion
	// definition file.
	FamilySAM1 Family = iota
	// FamilySAM2 is the second-generation single-image family. It requires
	// a checkpoint plus a companion YAML definition file.
	FamilySAM2
	// FamilySAM21 is the multi-frame-capable family. Like FamilySAM2 it is
	// config-driven; its raw masks may carry a tracking identifier.
	FamilySAM21
)

func (f Family) String() string {
	switch f {
	case FamilySAM1:
		return "sam1"
	case FamilySAM2:
		return "sam2"
	case FamilySAM21:
		return "sam21"
	default:
		return "unknown"
	}
}

// ParseFamily maps a config-file family string to its tag. "sam2.1" is
// accepted as an alias for "sam21".
func ParseFamily(s string) (Family, error) {
	switch s {
	case "sam1":
		return FamilySAM1, nil
	case "sam2":
		return FamilySAM2, nil
	case "sam21", "sam2.1":
		return FamilySAM21, nil
	default:
		return 0, fmt.Errorf("unknown model family %q", s)
	}
}

// RequiresConfigFile reports whether the family needs a companion
// definition file in addition to the checkpoint.
func (f Family) RequiresConfigFile() bool { return f == FamilySAM2 || f == FamilySAM21 }

// Tracks reports whether the family may attach tracking ids to its masks.
func (f Family) Tracks() bool { return f == FamilySAM21 }

// MarshalText implements encoding.TextMarshaler so the tag survives the
// JSON worker boundary and metadata sections.
func (f Family) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	parsed, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ModelDescriptor is the fully resolved description of one model entry.
// It is produced by the registry at resolution time and treated as
// immutable afterwards; it is never persisted.
type ModelDescriptor struct {
	Key           string `json:"key"`
	Family        Family `json:"family"`
	Architecture  string `json:"architecture,omitempty"`
	Checkpoint    string `json:"checkpoint"`
	CheckpointURL string `json:"checkpoint_url,omitempty"`
	ConfigFile    string `json:"config_file,omitempty"`
	ConfigURL     string `json:"config_url,omitempty"`
	Device        string `json:"device"`
	DefaultPreset string `json:"default_preset,omitempty"`
}

// Params is a flat bag of generation hyperparameters resolved from a named
// preset. The registry/preset layer owns it; adapters only read it.
type Params map[string]any

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Int returns the parameter as an int, converting the numeric types the
// TOML and JSON decoders produce.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Float returns the parameter as a float64.
func (p Params) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// String returns the parameter as a string.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key].(string)
	return v, ok
}

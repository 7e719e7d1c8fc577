package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"maskd/pkg/types"
)

// Application holds folder locations and runtime defaults.
type Application struct {
	ModelFolder     string   `toml:"model_folder" yaml:"model_folder" json:"model_folder"`
	MaskFolder      string   `toml:"mask_folder" yaml:"mask_folder" json:"mask_folder"`
	ImageFolder     string   `toml:"image_folder" yaml:"image_folder" json:"image_folder"`
	ImageExtensions []string `toml:"image_extensions" yaml:"image_extensions" json:"image_extensions"`
	LogLevel        string   `toml:"log_level" yaml:"log_level" json:"log_level"`
	TimeoutSeconds  int      `toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

// ModelEntry is one [models.<key>] table.
type ModelEntry struct {
	Family     string
	Type       string
	Checkpoint string
	URL        string
	ConfigFile string
	ConfigURL  string
	Preset     string
}

// Config is the parsed configuration consumed by the registry and preset
// resolver. The models section mixes scalar policy keys (default, device,
// autodownload) with per-model sub-tables, so it is decoded loosely and
// split apart here.
type Config struct {
	Application  Application
	DefaultModel string
	Device       string
	Autodownload bool
	Models       map[string]ModelEntry
	Presets      map[string]map[string]types.Params
}

// rawConfig matches the on-disk shape before the models section is split.
type rawConfig struct {
	Application Application                          `toml:"application" yaml:"application" json:"application"`
	Models      map[string]any                       `toml:"models" yaml:"models" json:"models"`
	Presets     map[string]map[string]map[string]any `toml:"presets" yaml:"presets" json:"presets"`
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	return Config{
		Application: Application{
			ModelFolder:     "~/maskd/models",
			MaskFolder:      "~/maskd/masks",
			ImageFolder:     "~/maskd/images",
			ImageExtensions: []string{"jpg", "jpeg", "png", "bmp", "tif", "tiff"},
			LogLevel:        "info",
			TimeoutSeconds:  300,
		},
		Device:       "auto",
		Autodownload: false,
		Models:       map[string]ModelEntry{},
		Presets:      map[string]map[string]types.Params{},
	}
}

// Load reads a configuration file based on its extension.
// Supports: .toml (primary), .yaml/.yml, .json
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var raw rawConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (Config, error) {
	cfg := Default()
	if raw.Application.ModelFolder != "" {
		cfg.Application.ModelFolder = raw.Application.ModelFolder
	}
	if raw.Application.MaskFolder != "" {
		cfg.Application.MaskFolder = raw.Application.MaskFolder
	}
	if raw.Application.ImageFolder != "" {
		cfg.Application.ImageFolder = raw.Application.ImageFolder
	}
	if len(raw.Application.ImageExtensions) > 0 {
		cfg.Application.ImageExtensions = raw.Application.ImageExtensions
	}
	if raw.Application.LogLevel != "" {
		cfg.Application.LogLevel = raw.Application.LogLevel
	}
	if raw.Application.TimeoutSeconds > 0 {
		cfg.Application.TimeoutSeconds = raw.Application.TimeoutSeconds
	}

	for key, v := range raw.Models {
		switch key {
		case "default":
			if s, ok := v.(string); ok {
				cfg.DefaultModel = s
			}
		case "device":
			if s, ok := v.(string); ok {
				cfg.Device = s
			}
		case "autodownload":
			if b, ok := v.(bool); ok {
				cfg.Autodownload = b
			}
		default:
			entry, err := modelEntry(v)
			if err != nil {
				return Config{}, fmt.Errorf("models.%s: %w", key, err)
			}
			cfg.Models[key] = entry
		}
	}

	for modelKey, group := range raw.Presets {
		dst := make(map[string]types.Params, len(group))
		for name, params := range group {
			p := make(types.Params, len(params))
			for k, v := range params {
				p[k] = v
			}
			dst[name] = p
		}
		cfg.Presets[modelKey] = dst
	}
	return cfg, nil
}

// modelEntry converts one loosely decoded [models.<key>] table.
func modelEntry(v any) (ModelEntry, error) {
	m, err := stringKeyed(v)
	if err != nil {
		return ModelEntry{}, err
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return ModelEntry{
		Family:     str("family"),
		Type:       str("type"),
		Checkpoint: str("checkpoint"),
		URL:        str("url"),
		ConfigFile: str("config"),
		ConfigURL:  str("config_url"),
		Preset:     str("preset"),
	}, nil
}

// stringKeyed normalizes the map shapes the three decoders produce.
func stringKeyed(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string table key %v", k)
			}
			out[ks] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a table, got %T", v)
	}
}

package types

import "time"

// ImageInfo describes the decoded source image of a run.
type ImageInfo struct {
	Path     string `json:"image_path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Dtype    string `json:"dtype"`
}

// ModelInfo records which model produced a run.
type ModelInfo struct {
	Family           string `json:"family"`
	Architecture     string `json:"model_type,omitempty"`
	Checkpoint       string `json:"checkpoint"`
	CheckpointSHA256 string `json:"checkpoint_sha256,omitempty"`
	ConfigFile       string `json:"config_yaml,omitempty"`
	Preset           string `json:"preset"`
	ModelKey         string `json:"model_key"`
}

// RunInfo records timing and throughput for one run.
type RunInfo struct {
	RunID               string    `json:"run_id"`
	Filtering           string    `json:"filtering"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	ElapsedSeconds      float64   `json:"elapsed_seconds"`
	MasksPerSecond      float64   `json:"masks_per_second"`
	Megapixels          float64   `json:"megapixels_processed"`
	MegapixelsPerSecond float64   `json:"megapixels_per_second"`
}

// MaskContainer is the full persisted artifact of one run: the source
// image bytes verbatim, the ordered mask list, and the four metadata
// blocks. One container corresponds to one (image, model, preset) triple.
type MaskContainer struct {
	SourceBytes []byte
	Masks       []MaskRecord
	Image       ImageInfo
	Model       ModelInfo
	Preset      Params
	Run         RunInfo
}

// ContainerSummary is the metadata-only view of a container, read without
// decoding raster payloads.
type ContainerSummary struct {
	Path      string    `json:"path"`
	MaskCount int       `json:"mask_count"`
	ImageSize int64     `json:"image_bytes"`
	Image     ImageInfo `json:"image_info"`
	Model     ModelInfo `json:"model_info"`
	Preset    Params    `json:"preset_info"`
	Run       RunInfo   `json:"run_info"`
}

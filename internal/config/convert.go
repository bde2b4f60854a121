package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultConvertConfigPath is the path to the canonical conversion defaults file.
const DefaultConvertConfigPath = "config/convert.defaults.json"

// IntensityScale names the range LiDAR intensities are normalised to.
type IntensityScale string

const (
	// IntensityUnit normalises intensities to [0, 1].
	IntensityUnit IntensityScale = "0-1"
	// IntensityByte normalises intensities to integral values in [0, 255].
	IntensityByte IntensityScale = "0-255"
)

// ParseIntensityScale accepts the two documented spellings plus the bare
// upper bound ("1", "255") used by older run scripts.
func ParseIntensityScale(s string) (IntensityScale, error) {
	switch s {
	case "0-1", "1":
		return IntensityUnit, nil
	case "0-255", "255":
		return IntensityByte, nil
	}
	return "", fmt.Errorf("unknown intensity scale %q (want \"0-1\" or \"0-255\")", s)
}

// ConvertConfig holds every knob of a conversion run. Fields are pointers so
// a partial file only overrides what it names; the Get* accessors supply
// defaults for the rest.
type ConvertConfig struct {
	IntensityScale         *string `json:"intensity_scale,omitempty" yaml:"intensity_scale,omitempty"`
	FirstFrameGapThreshold *int64  `json:"first_frame_gap_threshold,omitempty" yaml:"first_frame_gap_threshold,omitempty"`
	TruncateOnMissingLidar *bool   `json:"truncate_on_missing_lidar,omitempty" yaml:"truncate_on_missing_lidar,omitempty"`
	RadarKeyFrames         *bool   `json:"radar_key_frames,omitempty" yaml:"radar_key_frames,omitempty"`
	EncodeWorkers          *int    `json:"encode_workers,omitempty" yaml:"encode_workers,omitempty"`

	// Static table content
	DatasetVersion      *string `json:"dataset_version,omitempty" yaml:"dataset_version,omitempty"`
	Location            *string `json:"location,omitempty" yaml:"location,omitempty"`
	CategoryName        *string `json:"category_name,omitempty" yaml:"category_name,omitempty"`
	CategoryDescription *string `json:"category_description,omitempty" yaml:"category_description,omitempty"`

	// Roots; command-line flags take precedence
	AnnotationsDir *string `json:"annotations_dir,omitempty" yaml:"annotations_dir,omitempty"`
	SensorsDir     *string `json:"sensors_dir,omitempty" yaml:"sensors_dir,omitempty"`
	OutputDir      *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrInt64(v int64) *int64    { return &v }

// EmptyConvertConfig returns a ConvertConfig with all fields unset.
func EmptyConvertConfig() *ConvertConfig {
	return &ConvertConfig{}
}

// LoadConvertConfig loads a ConvertConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe.
func LoadConvertConfig(path string) (*ConvertConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConvertConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConvertConfig loads DefaultConvertConfigPath, searching the
// current directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConvertConfig() *ConvertConfig {
	candidates := []string{
		DefaultConvertConfigPath,
		"../" + DefaultConvertConfigPath,
		"../../" + DefaultConvertConfigPath,       // from internal/config/
		"../../../" + DefaultConvertConfigPath,    // from cmd/tools/x/
		"../../../../" + DefaultConvertConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadConvertConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConvertConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *ConvertConfig) Validate() error {
	if c.IntensityScale != nil {
		if _, err := ParseIntensityScale(*c.IntensityScale); err != nil {
			return err
		}
	}

	if c.FirstFrameGapThreshold != nil && *c.FirstFrameGapThreshold <= 0 {
		return fmt.Errorf("first_frame_gap_threshold must be positive, got %d", *c.FirstFrameGapThreshold)
	}

	if c.EncodeWorkers != nil && *c.EncodeWorkers < 0 {
		return fmt.Errorf("encode_workers must be non-negative, got %d", *c.EncodeWorkers)
	}

	if c.DatasetVersion != nil {
		v := *c.DatasetVersion
		if v == "" || v != filepath.Base(v) || v == "." || v == ".." {
			return fmt.Errorf("dataset_version must be a plain directory name, got %q", v)
		}
	}

	return nil
}

// GetIntensityScale returns the intensity scale or the default (0-1).
// Validate has already rejected unknown values.
func (c *ConvertConfig) GetIntensityScale() IntensityScale {
	if c.IntensityScale == nil {
		return IntensityUnit
	}
	s, err := ParseIntensityScale(*c.IntensityScale)
	if err != nil {
		return IntensityUnit
	}
	return s
}

// GetFirstFrameGapThreshold returns the raw-timestamp gap above which a
// scene's first frame is discarded.
func (c *ConvertConfig) GetFirstFrameGapThreshold() int64 {
	if c.FirstFrameGapThreshold == nil {
		return 200000000
	}
	return *c.FirstFrameGapThreshold
}

// GetTruncateOnMissingLidar reports whether a missing LiDAR file ends the
// scene (true, default) or fails the run.
func (c *ConvertConfig) GetTruncateOnMissingLidar() bool {
	if c.TruncateOnMissingLidar == nil {
		return true
	}
	return *c.TruncateOnMissingLidar
}

// GetRadarKeyFrames returns the is_key_frame value written on RADAR rows.
func (c *ConvertConfig) GetRadarKeyFrames() bool {
	if c.RadarKeyFrames == nil {
		return true
	}
	return *c.RadarKeyFrames
}

// GetEncodeWorkers returns the re-encoding pool size; 0 means one worker
// per CPU.
func (c *ConvertConfig) GetEncodeWorkers() int {
	if c.EncodeWorkers == nil || *c.EncodeWorkers == 0 {
		return runtime.NumCPU()
	}
	return *c.EncodeWorkers
}

// GetDatasetVersion returns the table directory name.
func (c *ConvertConfig) GetDatasetVersion() string {
	if c.DatasetVersion == nil {
		return "v1.0-mini"
	}
	return *c.DatasetVersion
}

// GetLocation returns the location recorded on every log row.
func (c *ConvertConfig) GetLocation() string {
	if c.Location == nil {
		return "Yas Marina Circuit"
	}
	return *c.Location
}

// GetCategoryName returns the single object category name.
func (c *ConvertConfig) GetCategoryName() string {
	if c.CategoryName == nil {
		return "vehicle.car"
	}
	return *c.CategoryName
}

// GetCategoryDescription returns the single object category description.
func (c *ConvertConfig) GetCategoryDescription() string {
	if c.CategoryDescription == nil {
		return "A car, in this domain mostly a racecar."
	}
	return *c.CategoryDescription
}

// GetAnnotationsDir returns the annotation input root.
func (c *ConvertConfig) GetAnnotationsDir() string {
	if c.AnnotationsDir == nil {
		return ""
	}
	return *c.AnnotationsDir
}

// GetSensorsDir returns the raw sensor data root.
func (c *ConvertConfig) GetSensorsDir() string {
	if c.SensorsDir == nil {
		return ""
	}
	return *c.SensorsDir
}

// GetOutputDir returns the dataset output root.
func (c *ConvertConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return ""
	}
	return *c.OutputDir
}

// SetIntensityScale overrides the intensity scale (used by CLI flags).
func (c *ConvertConfig) SetIntensityScale(s IntensityScale) { c.IntensityScale = ptrString(string(s)) }

// SetEncodeWorkers overrides the worker count (used by CLI flags).
func (c *ConvertConfig) SetEncodeWorkers(n int) { c.EncodeWorkers = ptrInt(n) }

// SetRoots overrides any non-empty root path (used by CLI flags).
func (c *ConvertConfig) SetRoots(annotations, sensors, output string) {
	if annotations != "" {
		c.AnnotationsDir = ptrString(annotations)
	}
	if sensors != "" {
		c.SensorsDir = ptrString(sensors)
	}
	if output != "" {
		c.OutputDir = ptrString(output)
	}
}

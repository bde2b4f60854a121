// Package pointcloud loads raw PCD point clouds and re-encodes them into
// the LiDAR and radar payload layouts of the nuScenes dataset.
package pointcloud

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is wrapped by MissingFieldError.
var ErrMissingField = errors.New("missing point field")

// Alternate names tried in order when looking up a scalar field.
var (
	IntensityFields = []string{"intensity", "intensities"}
	VelocityFields  = []string{"vel_var", "velocity"}
)

// MissingFieldError reports that none of the candidate names exist.
type MissingFieldError struct {
	Names []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%v: none of [%s] present", ErrMissingField, strings.Join(e.Names, ", "))
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// Cloud is a decoded point cloud: xyz positions plus scalar fields keyed by
// PCD field name. Fields with COUNT > 1 keep only their first component.
type Cloud struct {
	Positions [][3]float32
	Fields    map[string][]float64
}

// NewCloud returns an empty cloud with n preallocated positions.
func NewCloud(n int) *Cloud {
	return &Cloud{
		Positions: make([][3]float32, 0, n),
		Fields:    make(map[string][]float64),
	}
}

// Len returns the number of points.
func (c *Cloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Positions)
}

// Field returns the first of names present in the cloud.
func (c *Cloud) Field(names ...string) ([]float64, error) {
	if c != nil {
		for _, name := range names {
			if v, ok := c.Fields[name]; ok {
				return v, nil
			}
		}
	}
	return nil, &MissingFieldError{Names: append([]string(nil), names...)}
}

// Loader loads a point cloud from a path.
type Loader interface {
	Load(path string) (*Cloud, error)
}

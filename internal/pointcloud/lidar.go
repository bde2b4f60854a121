package pointcloud

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/nusconv/internal/config"
)

// LidarPointSize is the size of one encoded LiDAR point: five float32
// values (x, y, z, intensity, padding). The padding value is always zero.
const LidarPointSize = 5 * 4

// intensityUnitMax is the largest intensity still considered to be in [0, 1].
const intensityUnitMax = 1 + 1e-6

// NormalizeIntensities returns the intensities expressed in scale. Values
// whose maximum already fits the target range are returned unchanged.
func NormalizeIntensities(values []float64, scale config.IntensityScale) []float64 {
	out := append([]float64(nil), values...)
	if len(out) == 0 {
		return out
	}

	peak := floats.Max(out)
	switch scale {
	case config.IntensityUnit:
		if peak > intensityUnitMax {
			floats.Scale(1.0/255, out)
		}
	case config.IntensityByte:
		if peak <= intensityUnitMax {
			floats.Scale(255, out)
			for i := range out {
				out[i] = math.Round(out[i])
			}
		}
	}
	return out
}

// EncodeLidar encodes cloud as little-endian float32 records of
// (x, y, z, intensity, 0), normalising intensities to scale.
func EncodeLidar(cloud *Cloud, scale config.IntensityScale) ([]byte, error) {
	n := cloud.Len()
	if n == 0 {
		return []byte{}, nil
	}

	raw, err := cloud.Field(IntensityFields...)
	if err != nil {
		return nil, err
	}
	if len(raw) != n {
		return nil, fmt.Errorf("intensity has %d values for %d points", len(raw), n)
	}
	intensities := NormalizeIntensities(raw, scale)

	blob := make([]byte, n*LidarPointSize)
	for i, p := range cloud.Positions {
		offset := i * LidarPointSize
		binary.LittleEndian.PutUint32(blob[offset:], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(blob[offset+4:], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(blob[offset+8:], math.Float32bits(p[2]))
		binary.LittleEndian.PutUint32(blob[offset+12:], math.Float32bits(float32(intensities[i])))
	}
	return blob, nil
}

// DecodeLidar decodes a payload produced by EncodeLidar.
func DecodeLidar(blob []byte) (*Cloud, error) {
	if len(blob)%LidarPointSize != 0 {
		return nil, fmt.Errorf("lidar payload length %d is not a multiple of %d", len(blob), LidarPointSize)
	}
	n := len(blob) / LidarPointSize
	cloud := NewCloud(n)
	intensity := make([]float64, n)
	for i := 0; i < n; i++ {
		offset := i * LidarPointSize
		cloud.Positions = append(cloud.Positions, [3]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(blob[offset:])),
			math.Float32frombits(binary.LittleEndian.Uint32(blob[offset+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(blob[offset+8:])),
		})
		intensity[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[offset+12:])))
	}
	cloud.Fields["intensity"] = intensity
	return cloud, nil
}

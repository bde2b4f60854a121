package pointcloud

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// RadarComment is the first line of every radar payload.
const RadarComment = "# .PCD v0.7 - Point Cloud Data file format\n"

// RadarPointSize is the packed size of one radar record.
const RadarPointSize = 43

type radarField struct {
	name string
	size int
	typ  byte // 'F' or 'I'
	def  float64
}

// radarLayout is the nuScenes RADAR_TOP record, in file order.
var radarLayout = []radarField{
	{"x", 4, 'F', 0},
	{"y", 4, 'F', 0},
	{"z", 4, 'F', 0},
	{"dyn_prop", 1, 'I', 0},
	{"id", 2, 'I', 0},
	{"rcs", 4, 'F', 0},
	{"vx", 4, 'F', 0},
	{"vy", 4, 'F', 0},
	{"vx_comp", 4, 'F', 0},
	{"vy_comp", 4, 'F', 0},
	{"is_quality_valid", 1, 'I', 0},
	{"ambig_state", 1, 'I', 3},
	{"x_rms", 1, 'I', 0},
	{"y_rms", 1, 'I', 0},
	{"invalid_state", 1, 'I', 0},
	{"pdh0", 1, 'I', 1},
	{"vx_rms", 1, 'I', 0},
	{"vy_rms", 1, 'I', 0},
}

// RadarFieldNames returns the radar record field names in file order.
func RadarFieldNames() []string {
	names := make([]string, len(radarLayout))
	for i, f := range radarLayout {
		names[i] = f.name
	}
	return names
}

func radarHeader(n int) string {
	var fields, sizes, types, counts []string
	for _, f := range radarLayout {
		fields = append(fields, f.name)
		sizes = append(sizes, fmt.Sprint(f.size))
		types = append(types, string(f.typ))
		counts = append(counts, "1")
	}

	var b strings.Builder
	b.WriteString("VERSION 0.7\n")
	fmt.Fprintf(&b, "FIELDS %s\n", strings.Join(fields, " "))
	fmt.Fprintf(&b, "SIZE %s\n", strings.Join(sizes, " "))
	fmt.Fprintf(&b, "TYPE %s\n", strings.Join(types, " "))
	fmt.Fprintf(&b, "COUNT %s\n", strings.Join(counts, " "))
	fmt.Fprintf(&b, "WIDTH %d\n", n)
	b.WriteString("HEIGHT 1\n")
	b.WriteString("VIEWPOINT 0 0 0 1 0 0 0\n")
	fmt.Fprintf(&b, "POINTS %d\n", n)
	b.WriteString("DATA binary\n")
	return b.String()
}

// EncodeRadar encodes cloud as a binary PCD v0.7 file in the RADAR_TOP
// layout. Positions fill x/y/z, the intensity field fills rcs and the
// velocity field fills vx; every other field takes its fixed default.
// The file ends with a single newline after the binary records.
func EncodeRadar(cloud *Cloud) ([]byte, error) {
	n := cloud.Len()

	var rcs, vx []float64
	if n > 0 {
		var err error
		if rcs, err = cloud.Field(IntensityFields...); err != nil {
			return nil, err
		}
		if vx, err = cloud.Field(VelocityFields...); err != nil {
			return nil, err
		}
		if len(rcs) != n || len(vx) != n {
			return nil, fmt.Errorf("radar fields have %d/%d values for %d points", len(rcs), len(vx), n)
		}
	}

	header := radarHeader(n)
	var buf bytes.Buffer
	buf.Grow(len(RadarComment) + len(header) + n*RadarPointSize + 1)
	buf.WriteString(RadarComment)
	buf.WriteString(header)

	rec := make([]byte, RadarPointSize)
	for i := 0; i < n; i++ {
		p := cloud.Positions[i]
		offset := 0
		for _, f := range radarLayout {
			v := f.def
			switch f.name {
			case "x":
				v = float64(p[0])
			case "y":
				v = float64(p[1])
			case "z":
				v = float64(p[2])
			case "rcs":
				v = rcs[i]
			case "vx":
				v = vx[i]
			}
			putField(rec[offset:], f, v)
			offset += f.size
		}
		buf.Write(rec)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func putField(dst []byte, f radarField, v float64) {
	switch {
	case f.typ == 'F' && f.size == 4:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	case f.typ == 'I' && f.size == 1:
		dst[0] = byte(int8(v))
	case f.typ == 'I' && f.size == 2:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v)))
	default:
		panic(fmt.Sprintf("pointcloud: unsupported radar field %s %c%d", f.name, f.typ, f.size))
	}
}

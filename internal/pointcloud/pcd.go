package pointcloud

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/nusconv/internal/fsutil"
)

// Header is a parsed PCD header.
type Header struct {
	Version string
	Fields  []string
	Size    []int
	Type    []byte
	Count   []int
	Width   int
	Height  int
	Points  int
	Data    string
}

// PointSize returns the packed size in bytes of one binary record.
func (h *Header) PointSize() int {
	n := 0
	for i := range h.Fields {
		n += h.Size[i] * h.Count[i]
	}
	return n
}

// PCDReader loads .pcd files through a FileSystem.
type PCDReader struct {
	FS fsutil.FileSystem
}

// NewPCDReader returns a PCDReader over fsys.
func NewPCDReader(fsys fsutil.FileSystem) *PCDReader {
	return &PCDReader{FS: fsys}
}

// Load implements Loader.
func (r *PCDReader) Load(path string) (*Cloud, error) {
	data, err := r.FS.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cloud, err := DecodePCD(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cloud, nil
}

// ParseHeader parses the header of a PCD file and returns it together with
// the offset of the first data byte.
func ParseHeader(data []byte) (*Header, int, error) {
	h := &Header{Height: 1}
	pos := 0
	for pos < len(data) {
		end := bytes.IndexByte(data[pos:], '\n')
		var line string
		if end < 0 {
			line = string(data[pos:])
			pos = len(data)
		} else {
			line = string(data[pos : pos+end])
			pos += end + 1
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		key, vals := strings.ToUpper(parts[0]), parts[1:]
		var err error
		switch key {
		case "VERSION":
			if len(vals) > 0 {
				h.Version = vals[0]
			}
		case "FIELDS":
			h.Fields = vals
		case "SIZE":
			h.Size, err = atoiAll(vals)
		case "TYPE":
			h.Type = make([]byte, len(vals))
			for i, v := range vals {
				if len(v) != 1 {
					return nil, 0, fmt.Errorf("invalid TYPE %q", v)
				}
				h.Type[i] = strings.ToUpper(v)[0]
			}
		case "COUNT":
			h.Count, err = atoiAll(vals)
		case "WIDTH":
			h.Width, err = atoiOne(vals)
		case "HEIGHT":
			h.Height, err = atoiOne(vals)
		case "POINTS":
			h.Points, err = atoiOne(vals)
		case "VIEWPOINT":
		case "DATA":
			if len(vals) == 0 {
				return nil, 0, fmt.Errorf("DATA without encoding")
			}
			h.Data = strings.ToLower(vals[0])
			if err := h.validate(); err != nil {
				return nil, 0, err
			}
			return h, pos, nil
		default:
			return nil, 0, fmt.Errorf("unknown header line %q", line)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("header %s: %w", key, err)
		}
	}
	return nil, 0, fmt.Errorf("no DATA line in header")
}

// maxFieldCount bounds COUNT so that PointSize cannot overflow.
const maxFieldCount = 1 << 16

func (h *Header) validate() error {
	n := len(h.Fields)
	if n == 0 {
		return fmt.Errorf("no FIELDS in header")
	}
	if h.Count == nil {
		h.Count = make([]int, n)
		for i := range h.Count {
			h.Count[i] = 1
		}
	}
	if len(h.Size) != n || len(h.Type) != n || len(h.Count) != n {
		return fmt.Errorf("header has %d fields but %d sizes, %d types, %d counts",
			n, len(h.Size), len(h.Type), len(h.Count))
	}
	for i := range h.Fields {
		if h.Count[i] < 1 || h.Count[i] > maxFieldCount {
			return fmt.Errorf("field %s has COUNT %d", h.Fields[i], h.Count[i])
		}
		if !supportedType(h.Type[i], h.Size[i]) {
			return fmt.Errorf("field %s has unsupported type %c%d", h.Fields[i], h.Type[i], h.Size[i])
		}
	}
	if h.Width < 0 || h.Height < 0 {
		return fmt.Errorf("negative WIDTH %d or HEIGHT %d", h.Width, h.Height)
	}
	if h.Height > 0 && h.Width > math.MaxInt/h.Height {
		return fmt.Errorf("WIDTH %d x HEIGHT %d overflows", h.Width, h.Height)
	}
	if h.Points == 0 {
		h.Points = h.Width * h.Height
	}
	if h.Points < 0 {
		return fmt.Errorf("negative POINTS %d", h.Points)
	}
	return nil
}

func supportedType(t byte, size int) bool {
	switch t {
	case 'F':
		return size == 4 || size == 8
	case 'I', 'U':
		return size == 1 || size == 2 || size == 4 || size == 8
	}
	return false
}

// DecodePCD decodes an ascii or binary PCD file. The x, y and z fields are
// required; every other field is exposed by name.
func DecodePCD(data []byte) (*Cloud, error) {
	h, offset, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	if err := checkPointCount(h, len(data)-offset); err != nil {
		return nil, err
	}

	values := make([][]float64, len(h.Fields))
	for i := range values {
		values[i] = make([]float64, 0, h.Points)
	}

	switch h.Data {
	case "ascii":
		err = decodeASCII(h, data[offset:], values)
	case "binary":
		err = decodeBinary(h, data[offset:], values)
	default:
		err = fmt.Errorf("unsupported DATA encoding %q", h.Data)
	}
	if err != nil {
		return nil, err
	}

	cloud := NewCloud(h.Points)
	for i, name := range h.Fields {
		cloud.Fields[name] = values[i]
	}
	x, errX := cloud.Field("x")
	y, errY := cloud.Field("y")
	z, errZ := cloud.Field("z")
	if errX != nil || errY != nil || errZ != nil {
		return nil, &MissingFieldError{Names: []string{"x", "y", "z"}}
	}
	for i := range x {
		cloud.Positions = append(cloud.Positions, [3]float32{float32(x[i]), float32(y[i]), float32(z[i])})
	}
	delete(cloud.Fields, "x")
	delete(cloud.Fields, "y")
	delete(cloud.Fields, "z")
	return cloud, nil
}

// checkPointCount rejects a POINTS value the body cannot hold, so that
// nothing is sized from an unchecked header.
func checkPointCount(h *Header, bodyLen int) error {
	switch h.Data {
	case "binary":
		size := h.PointSize()
		if size <= 0 {
			return fmt.Errorf("invalid point size %d", size)
		}
		if h.Points > bodyLen/size {
			return fmt.Errorf("binary data has %d bytes, too short for %d points of %d bytes", bodyLen, h.Points, size)
		}
	case "ascii":
		// every ascii point takes at least one byte
		if h.Points > bodyLen {
			return fmt.Errorf("ascii data has %d bytes, too short for %d points", bodyLen, h.Points)
		}
	}
	return nil
}

func decodeASCII(h *Header, body []byte, values [][]float64) error {
	lines := strings.Split(string(body), "\n")
	read := 0
	for _, line := range lines {
		if read == h.Points {
			break
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		col := 0
		for i := range h.Fields {
			if col+h.Count[i] > len(tokens) {
				return fmt.Errorf("point %d: expected more values", read)
			}
			v, err := strconv.ParseFloat(tokens[col], 64)
			if err != nil {
				return fmt.Errorf("point %d field %s: %w", read, h.Fields[i], err)
			}
			values[i] = append(values[i], v)
			col += h.Count[i]
		}
		read++
	}
	if read != h.Points {
		return fmt.Errorf("expected %d points, found %d", h.Points, read)
	}
	return nil
}

func decodeBinary(h *Header, body []byte, values [][]float64) error {
	size := h.PointSize()
	for p := 0; p < h.Points; p++ {
		offset := p * size
		for i := range h.Fields {
			values[i] = append(values[i], readScalar(body[offset:], h.Type[i], h.Size[i]))
			offset += h.Size[i] * h.Count[i]
		}
	}
	return nil
}

func readScalar(b []byte, t byte, size int) float64 {
	switch t {
	case 'F':
		if size == 4 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case 'I':
		switch size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(b)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}
	default:
		switch size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(b))
		case 4:
			return float64(binary.LittleEndian.Uint32(b))
		default:
			return float64(binary.LittleEndian.Uint64(b))
		}
	}
}

// EncodePCD writes cloud as a PCD v0.7 file with float32 fields. Extra
// fields are written in sorted name order after x, y and z. It is used to
// produce fixtures and sensor dumps in the same format the reader accepts.
func EncodePCD(cloud *Cloud, ascii bool) []byte {
	names := sortedFieldNames(cloud)
	fields := append([]string{"x", "y", "z"}, names...)
	n := cloud.Len()

	var b bytes.Buffer
	b.WriteString("VERSION 0.7\n")
	fmt.Fprintf(&b, "FIELDS %s\n", strings.Join(fields, " "))
	fmt.Fprintf(&b, "SIZE %s\n", strings.TrimSpace(strings.Repeat("4 ", len(fields))))
	fmt.Fprintf(&b, "TYPE %s\n", strings.TrimSpace(strings.Repeat("F ", len(fields))))
	fmt.Fprintf(&b, "COUNT %s\n", strings.TrimSpace(strings.Repeat("1 ", len(fields))))
	fmt.Fprintf(&b, "WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\n", n, n)

	row := func(i int) []float32 {
		p := cloud.Positions[i]
		r := []float32{p[0], p[1], p[2]}
		for _, name := range names {
			r = append(r, float32(cloud.Fields[name][i]))
		}
		return r
	}

	if ascii {
		b.WriteString("DATA ascii\n")
		for i := 0; i < n; i++ {
			var cols []string
			for _, v := range row(i) {
				cols = append(cols, strconv.FormatFloat(float64(v), 'g', -1, 32))
			}
			b.WriteString(strings.Join(cols, " "))
			b.WriteByte('\n')
		}
		return b.Bytes()
	}

	b.WriteString("DATA binary\n")
	word := make([]byte, 4)
	for i := 0; i < n; i++ {
		for _, v := range row(i) {
			binary.LittleEndian.PutUint32(word, math.Float32bits(v))
			b.Write(word)
		}
	}
	return b.Bytes()
}

func sortedFieldNames(cloud *Cloud) []string {
	var names []string
	if cloud == nil {
		return names
	}
	for name := range cloud.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func atoiAll(vals []string) ([]int, error) {
	out := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func atoiOne(vals []string) (int, error) {
	if len(vals) != 1 {
		return 0, fmt.Errorf("expected one value, got %d", len(vals))
	}
	return strconv.Atoi(vals[0])
}

package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	root := filepath.Join("/", "out", "dataset")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "payload path", rel: "samples/LIDAR_TOP/LIDAR_TOP_uni_100.pcd.bin", want: filepath.Join(root, "samples/LIDAR_TOP/LIDAR_TOP_uni_100.pcd.bin")},
		{name: "inner dot dot stays inside", rel: "samples/x/../y.bin", want: filepath.Join(root, "samples/y.bin")},
		{name: "escape", rel: "../etc/passwd", wantErr: true},
		{name: "escape via team name", rel: "samples/LIDAR_TOP/../../../x", wantErr: true},
		{name: "absolute", rel: "/etc/passwd", wantErr: true},
		{name: "root itself", rel: ".", wantErr: true},
		{name: "empty", rel: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin(root, tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                    "unknown",
		"scene_01":            "scene_01",
		"team/../../x":        "team_.._.._x",
		"Yas Marina: lap 3":   "Yas_Marina_lap_3",
		"..hidden..":          "hidden",
		"___":                 "unknown",
		"2024-01-05_session1": "2024-01-05_session1",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
}

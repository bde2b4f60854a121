package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest_Law(t *testing.T) {
	idx := Build([]string{"/r/900.pcd", "/r/100.pcd", "/r/500.pcd"})
	require.Equal(t, 3, idx.Len())

	tests := []struct {
		query int64
		want  int64
	}{
		{650, 500},
		{50, 100},
		{1000, 900},
		{100, 100},
		{900, 900},
		{701, 900},
		{299, 100},
	}
	for _, tt := range tests {
		got, ok := idx.Nearest(tt.query)
		require.True(t, ok, "query %d", tt.query)
		assert.Equal(t, tt.want, got.Timestamp, "query %d", tt.query)
	}
}

func TestNearest_TieFavoursEarlier(t *testing.T) {
	idx := Build([]string{"/r/100.pcd", "/r/200.pcd"})

	got, ok := idx.Nearest(150)
	require.True(t, ok)
	assert.Equal(t, int64(100), got.Timestamp)
	assert.Equal(t, "/r/100.pcd", got.Path)
}

func TestNearest_Empty(t *testing.T) {
	_, ok := Build(nil).Nearest(10)
	assert.False(t, ok)

	var nilIdx *Index
	_, ok = nilIdx.Nearest(10)
	assert.False(t, ok)
}

func TestBuild_DropsMalformedNames(t *testing.T) {
	idx := Build([]string{"/r/abc.pcd", "/r/300.pcd", "/r/12_34.pcd", "/r/.pcd"})

	caps := idx.Captures()
	require.Len(t, caps, 1)
	assert.Equal(t, Capture{Timestamp: 300, Path: "/r/300.pcd"}, caps[0])
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("/a/b/1700000000123456789.pcd")
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000123456789), ts)

	_, ok = ParseTimestamp("/a/b/frame.pcd")
	assert.False(t, ok)
}

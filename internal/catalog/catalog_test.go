package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nusconv/internal/convert"
	"github.com/banshee-data/nusconv/internal/monitoring"
	"github.com/banshee-data/nusconv/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

var t0 = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

func openTestCatalog(t *testing.T) (*Catalog, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(t0)
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func testSummary() *convert.Summary {
	return &convert.Summary{
		Logs: 1, Scenes: 2, Frames: 7, Instances: 3, Annotations: 12,
		RadarFrames: 5, SkippedFirstFrames: 1, TruncatedScenes: 1, Payloads: 11,
		SceneStats: []convert.SceneStats{
			{Log: "s1", Team: "tum", Scene: "scene_2", InputFrames: 4, Samples: 3, Gaps: []int64{100, 250}, Truncated: true, Duration: 1500 * time.Millisecond},
			{Log: "s1", Team: "tum", Scene: "scene_1", InputFrames: 5, Samples: 4, SkippedFirst: true, Annotations: 12, Instances: 3, RadarFrames: 5},
		},
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	c, _ := openTestCatalog(t)

	v, dirty, err := c.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	// idempotent
	require.NoError(t, c.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	c, _ := openTestCatalog(t)

	require.NoError(t, c.MigrateDown())
	v, _, err := c.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	var n int
	err = c.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='scene_stats'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunLifecycle(t *testing.T) {
	c, clock := openTestCatalog(t)

	id, err := c.BeginRun(RunParams{AnnotationsDir: "/a", SensorsDir: "/s", OutputDir: "/o", DatasetVersion: "v1.0-mini", IntensityScale: "0-1"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	run, err := c.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Nil(t, run.FinishedAt)
	assert.True(t, run.StartedAt.Equal(t0))

	clock.Advance(90 * time.Second)
	require.NoError(t, c.FinishRun(id, testSummary(), nil))

	run, err = c.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, 90*time.Second, run.FinishedAt.Sub(run.StartedAt))
	assert.Equal(t, 7, run.Frames)
	assert.Equal(t, 11, run.Payloads)
	assert.Equal(t, "/s", run.SensorsDir)

	scenes, err := c.SceneStats(id)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "scene_1", scenes[0].Scene)
	assert.True(t, scenes[0].SkippedFirst)
	assert.Equal(t, int64(0), scenes[0].MaxGap)
	assert.Equal(t, "scene_2", scenes[1].Scene)
	assert.Equal(t, int64(250), scenes[1].MaxGap)
	assert.Equal(t, int64(1500), scenes[1].DurationMs)
	assert.True(t, scenes[1].Truncated)
}

func TestFinishRun_Failure(t *testing.T) {
	c, _ := openTestCatalog(t)

	id, err := c.BeginRun(RunParams{DryRun: true})
	require.NoError(t, err)
	require.NoError(t, c.FinishRun(id, nil, errors.New("lidar point cloud not found")))

	run, err := c.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "lidar point cloud not found", run.Error)
	assert.True(t, run.DryRun)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	c, _ := openTestCatalog(t)

	err := c.FinishRun("nope", testSummary(), nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = c.GetRun("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	c, clock := openTestCatalog(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := c.BeginRun(RunParams{})
		require.NoError(t, err)
		ids = append(ids, id)
		clock.Advance(time.Minute)
	}

	runs, err := c.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = c.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAdminRoutes(t *testing.T) {
	c, _ := openTestCatalog(t)
	id, err := c.BeginRun(RunParams{OutputDir: "/o"})
	require.NoError(t, err)
	require.NoError(t, c.FinishRun(id, testSummary(), nil))

	mux := http.NewServeMux()
	require.NoError(t, c.AttachAdminRoutes(mux))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)

	rec = get("/api/runs/" + id + "/scenes")
	require.Equal(t, http.StatusOK, rec.Code)
	var scenes []SceneRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scenes))
	assert.Len(t, scenes, 2)

	assert.Equal(t, http.StatusNotFound, get("/api/runs/unknown").Code)
	assert.Equal(t, http.StatusBadRequest, get("/api/runs?limit=x").Code)
	assert.Equal(t, http.StatusNotFound, get("/api/runs/"+id+"/frames").Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/"+id, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

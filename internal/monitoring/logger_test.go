package monitoring

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous logger")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.Log("2024-01-05")
	p.Team("uni", 2)
	p.Scene(1, 2, "scene_01", 98, 1234567*time.Microsecond)
	p.Summary([]SummaryLine{{Label: "Logs", Value: 1}, {Label: "Scenes", Value: 2}})

	want := "Processing 2024-01-05\n" +
		"Processing team uni (2 scenes)\n" +
		"  [1/2] scene_01: 98 samples in 1.235s\n" +
		"------------------- Summary ---------------------\n" +
		"Logs: 1\n" +
		"Scenes: 2\n"
	assert.Equal(t, want, buf.String())
}

func TestProgress_Nil(t *testing.T) {
	var p *Progress
	assert.NotPanics(t, func() {
		p.Log("x")
		p.Summary([]SummaryLine{{Label: "Logs", Value: 0}})
	})
}

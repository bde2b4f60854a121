package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := [3]string{Version, GitSHA, BuildTime}
	defer func() { Version, GitSHA, BuildTime = orig[0], orig[1], orig[2] }()

	Version, GitSHA, BuildTime = "0.3.1", "abc1234", "2024-05-01T10:00:00Z"
	assert.Equal(t, "0.3.1 (commit abc1234, built 2024-05-01T10:00:00Z)", String())
}

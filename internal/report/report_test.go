package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/prediction/internal/obstacle"
	"github.com/banshee-data/prediction/internal/units"
)

func historyFixture() []obstacle.Feature {
	// Newest first, like Obstacle.History()
	return []obstacle.Feature{
		{ID: 1, Timestamp: 3.0, Speed: 12, AccelerationNorm: 1.0, VelocityHeading: 0.5},
		{ID: 1, Timestamp: 2.0, Speed: 11, AccelerationNorm: 0.5, VelocityHeading: 0.4},
		{ID: 1, Timestamp: 1.0, Speed: 10, AccelerationNorm: 0.0, VelocityHeading: 0.3},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, historyFixture(), Options{Title: "Obstacle 1", SpeedUnits: units.KMPH})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Obstacle 1: speed")
	assert.Contains(t, html, "Obstacle 1: acceleration")
	assert.Contains(t, html, "Obstacle 1: velocity heading")
	assert.Contains(t, html, "speed (km/h)")
}

func TestRenderDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, historyFixture(), Options{SpeedUnits: "bogus"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Obstacle kinematics: speed")
	assert.Contains(t, html, "speed (m/s)", "invalid units fall back to m/s")
}

func TestRenderEmptyHistory(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Render(&buf, nil, Options{})
	assert.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, RenderFile(path, historyFixture(), Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

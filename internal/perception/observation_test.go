package perception

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObstacleTypeIsValid(t *testing.T) {
	for _, vt := range ValidTypes {
		if !vt.IsValid() {
			t.Errorf("expected %q to be valid", vt)
		}
	}
	if ObstacleType("spaceship").IsValid() {
		t.Error("expected unknown type to be invalid")
	}
	if ObstacleType("").IsValid() {
		t.Error("expected empty type to be invalid")
	}
}

func TestReadLog(t *testing.T) {
	t.Parallel()

	t.Run("parses full and partial observations", func(t *testing.T) {
		t.Parallel()
		log := strings.Join([]string{
			`{"id": 7, "type": "vehicle", "timestamp": 1.5, "position": {"x": 1, "y": 2, "z": 3}, "velocity": {"x": 3, "y": 4}, "theta": 0.5}`,
			``,
			`{"id": 7, "type": "vehicle", "timestamp": 1.6}`,
		}, "\n")

		observations, err := ReadLog(strings.NewReader(log))
		require.NoError(t, err)
		require.Len(t, observations, 2)

		first := observations[0]
		require.NotNil(t, first.ID)
		assert.Equal(t, 7, *first.ID)
		require.NotNil(t, first.Type)
		assert.Equal(t, TypeVehicle, *first.Type)
		require.NotNil(t, first.Velocity)
		require.NotNil(t, first.Velocity.X)
		assert.Equal(t, 3.0, *first.Velocity.X)
		assert.Nil(t, first.Velocity.Z, "unreported axis stays nil")

		second := observations[1]
		assert.Nil(t, second.Position)
		assert.Nil(t, second.Velocity)
		assert.Nil(t, second.Theta)
	})

	t.Run("reports line number on malformed input", func(t *testing.T) {
		t.Parallel()
		log := `{"id": 1, "type": "vehicle"}` + "\n" + `{broken`

		_, err := ReadLog(strings.NewReader(log))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("empty input yields no observations", func(t *testing.T) {
		t.Parallel()
		observations, err := ReadLog(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, observations)
	})
}

package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamcurate/pkg/colormap"
	"streamcurate/pkg/tract"
)

func TestMemoryStage(t *testing.T) {
	stage := NewMemoryStage()

	lines := tract.NewTractogram()
	require.NoError(t, lines.Append(tract.Streamline{{X: 0}, {X: 1}}))

	sl := stage.AddStreamlines(lines, []colormap.Color{{R: 1}, {R: 1}})
	tube := stage.AddTube(tract.Streamline{{X: 0}, {X: 1}}, colormap.Color{G: 1}, 0.1)

	t.Run("new actors start visible and opaque", func(t *testing.T) {
		for _, a := range stage.Actors() {
			assert.True(t, a.Visible())
			assert.Equal(t, 1.0, a.Opacity())
		}
	})

	t.Run("tubes are listed separately", func(t *testing.T) {
		tubes := stage.Tubes()
		require.Len(t, tubes, 1)
		assert.Equal(t, 0.1, tubes[0].TubeWidth)
		assert.Equal(t, colormap.Color{G: 1}, tubes[0].TubeColor)
	})

	t.Run("remove drops only the given actors", func(t *testing.T) {
		stage.Remove(tube)
		require.Len(t, stage.Actors(), 1)
		assert.Equal(t, KindStreamlines, stage.Actors()[0].Kind)
	})

	t.Run("render is counted", func(t *testing.T) {
		before := stage.RenderCount()
		stage.Render()
		stage.Render()
		assert.Equal(t, before+2, stage.RenderCount())
	})

	t.Run("visibility and colors round trip", func(t *testing.T) {
		sl.SetVisible(false)
		sl.SetOpacity(0.4)
		sl.SetPointColors([]colormap.Color{{B: 1}, {B: 1}})

		got := stage.Actors()[0]
		assert.False(t, got.Visible())
		assert.Equal(t, 0.4, got.Opacity())
		assert.Equal(t, colormap.Color{B: 1}, got.PointColors[0])
	})
}

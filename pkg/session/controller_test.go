package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, opts Options, sizes ...int) (*Controller, *Session) {
	t.Helper()
	s, _ := newTestSession(t, opts, sizes...)
	return NewController(s, nil), s
}

func TestShortcutSurface(t *testing.T) {
	c, s := newTestController(t, Options{DefaultThreshold: 10}, 12, 8, 4)
	splitIntoGroups(t, s, 3)

	t.Run("tab selects next biggest", func(t *testing.T) {
		handled, err := c.HandleKey(KeyEvent{Key: "tab"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, "/0/", s.Selected())
	})

	t.Run("shift+tab selects previous", func(t *testing.T) {
		handled, err := c.HandleKey(KeyEvent{Key: "tab", Shift: true})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, "/2/", s.Selected(), "previous from the top wraps to the end")
	})

	t.Run("space toggles dim and hide", func(t *testing.T) {
		require.Equal(t, VisibilityDimmed, s.LastVisibility())
		handled, err := c.HandleKey(KeyEvent{Key: "space"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, VisibilityHidden, s.LastVisibility())

		handled, err = c.HandleKey(KeyEvent{Key: "space"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, VisibilityDimmed, s.LastVisibility())
	})

	t.Run("c shows centroids", func(t *testing.T) {
		handled, err := c.HandleKey(KeyEvent{Key: "c"})
		require.NoError(t, err)
		assert.True(t, handled)
		b, _ := s.Lookup("/0/")
		assert.True(t, b.CentroidsVisible())
		assert.False(t, b.StreamlinesVisible())
	})

	t.Run("shift+c shows streamlines", func(t *testing.T) {
		handled, err := c.HandleKey(KeyEvent{Key: "c", Shift: true})
		require.NoError(t, err)
		assert.True(t, handled)
		b, _ := s.Lookup("/0/")
		assert.False(t, b.CentroidsVisible())
		assert.True(t, b.StreamlinesVisible())
	})

	t.Run("a accepts the selection", func(t *testing.T) {
		require.Equal(t, "/2/", s.Selected())
		handled, err := c.HandleKey(KeyEvent{Key: "a"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, 4, s.Inliers().Len())
		assert.NotContains(t, s.Bundles(), "/2/")
	})

	t.Run("r rejects the selection", func(t *testing.T) {
		require.NotEqual(t, "", s.Selected())
		rejected := s.Selected()
		handled, err := c.HandleKey(KeyEvent{Key: "r"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.NotContains(t, s.Bundles(), rejected)
		assert.Greater(t, s.Outliers().Len(), 0)
	})

	t.Run("u undoes the last decision", func(t *testing.T) {
		before := s.Outliers().Len()
		require.Greater(t, before, 0)
		handled, err := c.HandleKey(KeyEvent{Key: "u"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, 0, s.Outliers().Len())
	})

	t.Run("escape deselects", func(t *testing.T) {
		require.NotEqual(t, "", s.Selected())
		handled, err := c.HandleKey(KeyEvent{Key: "escape"})
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, "", s.Selected())
	})
}

func TestSelectionKeysFallThroughWithoutSelection(t *testing.T) {
	c, s := newTestController(t, Options{}, 5)
	require.Equal(t, "", s.Selected())

	for _, key := range []string{"a", "r", "space"} {
		handled, err := c.HandleKey(KeyEvent{Key: key})
		require.NoError(t, err, "key %q", key)
		assert.False(t, handled, "key %q must not be consumed without a selection", key)
	}
	assert.Equal(t, 0, s.Inliers().Len())
	assert.Equal(t, 0, s.Outliers().Len())
}

func TestUnknownKeysAreNotHandled(t *testing.T) {
	c, _ := newTestController(t, Options{}, 5)
	for _, key := range []string{"x", "q", "f1", "enter"} {
		handled, err := c.HandleKey(KeyEvent{Key: key})
		require.NoError(t, err)
		assert.False(t, handled, "key %q", key)
	}
}

func TestUndoWorksWithoutSelection(t *testing.T) {
	c, s := newTestController(t, Options{}, 6)
	require.NoError(t, s.Select(RootLabel))
	require.NoError(t, s.Accept())
	require.Equal(t, "", s.Selected(), "accepting the last bundle clears the selection")

	handled, err := c.HandleKey(KeyEvent{Key: "u"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, s.Bundles(), RootLabel)
}

func TestHomeMergesEverything(t *testing.T) {
	c, s := newTestController(t, Options{DefaultThreshold: 10}, 8, 4)
	splitIntoGroups(t, s, 2)

	handled, err := c.HandleKey(KeyEvent{Key: "home"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{RootLabel}, s.Bundles())
}

func TestSaveShortcut(t *testing.T) {
	store := newFakeStorage()
	c, _ := newTestController(t, Options{Prefix: "p", Storage: store}, 4)

	handled, err := c.HandleKey(KeyEvent{Key: "s"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, store.files, "p_bundle_0.tck")
}

func TestApplyThresholdText(t *testing.T) {
	c, s := newTestController(t, Options{DefaultThreshold: 50}, 4, 4)
	require.NoError(t, s.Select(RootLabel))
	max := s.ThresholdMax()
	require.Greater(t, max, 10.0)

	t.Run("valid value previews", func(t *testing.T) {
		value, clusters, err := c.ApplyThresholdText("10")
		require.NoError(t, err)
		assert.Equal(t, 10.0, value)
		assert.Equal(t, 2, clusters)
		assert.Equal(t, 10.0, s.LastThreshold())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, _, err := c.ApplyThresholdText("12..5")
		require.Error(t, err)
		assert.Equal(t, 10.0, s.LastThreshold(), "a rejected value leaves the preview alone")
	})

	t.Run("negative is rejected", func(t *testing.T) {
		_, _, err := c.ApplyThresholdText("-3")
		assert.Error(t, err)
	})

	t.Run("beyond the range is rejected", func(t *testing.T) {
		_, _, err := c.ApplyThresholdText("99999")
		assert.Error(t, err)
		assert.Equal(t, 10.0, s.LastThreshold())
	})
}

func TestDragThreshold(t *testing.T) {
	c, s := newTestController(t, Options{}, 4, 4)
	require.NoError(t, s.Select(RootLabel))
	max := s.ThresholdMax()

	t.Run("ratio maps onto the range", func(t *testing.T) {
		value, _, err := c.DragThreshold(0.5)
		require.NoError(t, err)
		assert.InDelta(t, max/2, value, 1e-9)
	})

	t.Run("ratio clamps to the range", func(t *testing.T) {
		value, _, err := c.DragThreshold(2.5)
		require.NoError(t, err)
		assert.InDelta(t, max, value, 1e-9)

		value, _, err = c.DragThreshold(-1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, value)
	})

	t.Run("without a selection", func(t *testing.T) {
		require.NoError(t, s.Select(""))
		_, _, err := c.DragThreshold(0.5)
		assert.ErrorIs(t, err, ErrNoSelection)
	})
}

package cart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mymerch/catalog"
	"mymerch/editor"
	"mymerch/models"
)

func newEditorWithText(t *testing.T, text string) *editor.Editor {
	t.Helper()
	e := editor.New(editor.Size{Width: 200, Height: 200})
	_, err := e.AddText(text, "", 0, "#ff0000")
	require.NoError(t, err)
	return e
}

func TestCapture_QuantityBounds(t *testing.T) {
	c := New(zaptest.NewLogger(t))
	e := newEditorWithText(t, "Bounds")

	for _, q := range []int{0, 1001, -3} {
		_, err := c.Capture(e, "tee", "Classic Tee", "Navy", catalog.ViewFront, q)
		require.Error(t, err, "quantity %d", q)
		assert.True(t, models.IsValidation(err))
		assert.Equal(t, 0, c.Len())
	}

	for _, q := range []int{1, 1000} {
		_, err := c.Capture(e, "tee", "Classic Tee", "Navy", catalog.ViewFront, q)
		require.NoError(t, err, "quantity %d", q)
	}
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1001, c.TotalQuantity())
}

func TestCapture_Contents(t *testing.T) {
	c := New(zaptest.NewLogger(t))
	e := newEditorWithText(t, "Front print")

	m, err := c.Capture(e, "hoodie", "Zip Hoodie", "Black", catalog.ViewBack, 5)
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "back", m.View)
	assert.Equal(t, 5, m.Quantity)
	assert.True(t, strings.HasPrefix(m.PreviewImage, "data:image/png;base64,"))
	assert.Contains(t, m.DesignSnapshot, "Front print")
	assert.False(t, m.CapturedAt.IsZero())

	// the mockup is a copy; later edits do not touch it
	e.Clear()
	assert.Contains(t, c.Mockups()[0].DesignSnapshot, "Front print")
}

func TestCapture_SnapshotRestoresIntoFreshEditor(t *testing.T) {
	c := New(nil)
	e := newEditorWithText(t, "Round trip")

	m, err := c.Capture(e, "mug", "Mug", "White", catalog.ViewFront, 2)
	require.NoError(t, err)

	fresh := editor.New(editor.Size{Width: 200, Height: 200})
	require.NoError(t, fresh.LoadSnapshot(m.DesignSnapshot))
	assert.Equal(t, e.Content(), fresh.Content())
}

func TestCapture_NilEditor(t *testing.T) {
	c := New(nil)
	_, err := c.Capture(nil, "tee", "Classic Tee", "Navy", catalog.ViewFront, 1)
	assert.True(t, models.IsValidation(err))
	assert.Equal(t, 0, c.Len())
}

func TestRemoveAndClear(t *testing.T) {
	c := New(nil)
	e := newEditorWithText(t, "x")

	a, _ := c.Capture(e, "tee", "Classic Tee", "Navy", catalog.ViewFront, 5)
	b, _ := c.Capture(e, "tee", "Classic Tee", "White", catalog.ViewFront, 3)
	assert.Equal(t, 8, c.TotalQuantity())

	c.Remove("missing")
	assert.Equal(t, 2, c.Len())

	c.Remove(a.ID)
	mockups := c.Mockups()
	require.Len(t, mockups, 1)
	assert.Equal(t, b.ID, mockups[0].ID)
	assert.Equal(t, 3, c.TotalQuantity())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.TotalQuantity())
}

func TestAdd(t *testing.T) {
	var c Cart
	assert.True(t, models.IsValidation(c.Add(models.Mockup{Quantity: 0})))
	require.NoError(t, c.Add(models.Mockup{Quantity: 4}))
	assert.NotEmpty(t, c.Mockups()[0].ID)
	assert.Equal(t, 4, c.TotalQuantity())
}

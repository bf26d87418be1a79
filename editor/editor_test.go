package editor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mymerch/catalog"
	"mymerch/models"
)

type gateLoader struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	images    map[string]image.Image
	requested []string
}

func newGateLoader() *gateLoader {
	return &gateLoader{gates: map[string]chan struct{}{}, images: map[string]image.Image{}}
}

func (l *gateLoader) hold(src string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	gate := make(chan struct{})
	l.gates[src] = gate
	return gate
}

func (l *gateLoader) Load(ctx context.Context, src string) (image.Image, error) {
	l.mu.Lock()
	l.requested = append(l.requested, src)
	gate := l.gates[src]
	img, ok := l.images[src]
	l.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, errors.New("image: unknown format")
	}
	return img, nil
}

var (
	navy = color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff}
	red  = color.NRGBA{R: 0xff, A: 0xff}
)

func testProduct() (catalog.Product, catalog.ColorVariant, catalog.ColorVariant) {
	navyVariant := catalog.ColorVariant{ColorName: "Navy", ColorCode: "#1f2a44", FrontImage: "front.png", BackImage: "back.png"}
	whiteVariant := catalog.ColorVariant{ColorName: "White", ColorCode: "#ffffff", FrontImage: "white-front.png"}
	p := catalog.Product{
		ID:            "tee-classic",
		Name:          "Classic Tee",
		Category:      catalog.CategoryTShirt,
		ColorVariants: []catalog.ColorVariant{navyVariant, whiteVariant},
		IsActive:      true,
	}
	return p, navyVariant, whiteVariant
}

func newTestEditor(t *testing.T, loader ImageLoader, opts ...Option) *Editor {
	opts = append([]Option{WithLoader(loader), WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(Size{Width: 600, Height: 600}, opts...)
}

func countBackgrounds(elements []Element) int {
	n := 0
	for _, el := range elements {
		if el.Kind() == KindBackground {
			n++
		}
	}
	return n
}

func TestNew_Empty(t *testing.T) {
	e := New(Size{})
	assert.Equal(t, DefaultSize, e.Size())
	assert.Equal(t, StateEmpty, e.State())
	assert.Empty(t, e.Status())
	assert.Empty(t, e.Elements())
}

func TestSetBackground_FitsAndCenters(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(200, 100, red)

	var mu sync.Mutex
	var statuses []string
	e := newTestEditor(t, loader, WithStatusListener(func(s string) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	p, v, _ := testProduct()
	outcome := <-e.SetBackground(p, v, catalog.ViewFront)
	require.NoError(t, outcome.Err)

	bg, ok := e.Background()
	require.True(t, ok)
	assert.InDelta(t, 540, bg.Width, 0.001)
	assert.InDelta(t, 270, bg.Height, 0.001)
	assert.Equal(t, Point{X: 300, Y: 300}, bg.Position)
	assert.False(t, bg.Interactive())
	assert.False(t, bg.Fallback)

	assert.Equal(t, StateReady, e.State())
	assert.Equal(t, "ready", e.Status())
	mu.Lock()
	assert.Equal(t, []string{"loading", "ready"}, statuses)
	mu.Unlock()
}

func TestSetBackground_BackViewFallsBackToFront(t *testing.T) {
	loader := newGateLoader()
	loader.images["white-front.png"] = imaging.New(10, 10, red)
	e := newTestEditor(t, loader)

	p, _, white := testProduct()
	<-e.SetBackground(p, white, catalog.ViewBack)
	assert.Equal(t, []string{"white-front.png"}, loader.requested)
}

func TestSetBackground_DecodeFailureUsesColorRectangle(t *testing.T) {
	e := newTestEditor(t, newGateLoader())
	p, v, _ := testProduct()

	outcome := <-e.SetBackground(p, v, catalog.ViewBack)
	require.Error(t, outcome.Err)
	assert.True(t, models.IsDecode(outcome.Err))

	bg, ok := e.Background()
	require.True(t, ok)
	assert.True(t, bg.Fallback)
	assert.InDelta(t, 540, bg.Width, 0.001)
	assert.Equal(t, navy, color.NRGBAModel.Convert(bg.Image.At(10, 10)))

	assert.Equal(t, StateBackgroundError, e.State())
	assert.True(t, strings.HasPrefix(e.Status(), "error: "))
	assert.True(t, models.IsDecode(e.LastError()))

	// content edits are still accepted in the error state
	_, err := e.AddText("Still works", "", 0, "")
	require.NoError(t, err)
}

func TestSetBackground_PreservesContentAddedWhileLoading(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(300, 300, red)
	gate := loader.hold("front.png")
	e := newTestEditor(t, loader)

	before, err := e.AddText("Before", "Arial", 24, "#ffffff")
	require.NoError(t, err)
	moved := before.Transform
	moved.Position = Point{X: 120, Y: 80}
	moved.Angle = 15
	moved.ScaleX, moved.ScaleY = 2, 2
	require.NoError(t, e.Update(before.ID, moved))

	p, v, _ := testProduct()
	done := e.SetBackground(p, v, catalog.ViewFront)
	assert.Equal(t, StateBackgroundLoading, e.State())
	assert.Equal(t, 0, countBackgrounds(e.Elements()))

	during, err := e.AddText("During", "", 0, "")
	require.NoError(t, err)
	img, err := e.AddImage(imaging.New(50, 50, red))
	require.NoError(t, err)

	close(gate)
	require.NoError(t, (<-done).Err)

	elements := e.Elements()
	require.Len(t, elements, 4)
	assert.Equal(t, KindBackground, elements[0].Kind())
	assert.Equal(t, []string{before.ID, during.ID, img.ID},
		[]string{elements[1].ElementID(), elements[2].ElementID(), elements[3].ElementID()})

	text := elements[1].(TextContent)
	assert.Equal(t, moved, text.Transform)
}

func TestSetBackground_LaterCompletionWins(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(100, 100, red)
	loader.images["back.png"] = imaging.New(100, 50, red)
	frontGate := loader.hold("front.png")
	backGate := loader.hold("back.png")
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()

	first := e.SetBackground(p, v, catalog.ViewFront)
	second := e.SetBackground(p, v, catalog.ViewBack)

	close(backGate)
	<-second
	bg, _ := e.Background()
	assert.InDelta(t, 270, bg.Height, 0.001, "back photo is 2:1")
	assert.Equal(t, 1, countBackgrounds(e.Elements()))

	close(frontGate)
	<-first
	bg, _ = e.Background()
	assert.InDelta(t, 540, bg.Height, 0.001, "front photo completed last")
	assert.Equal(t, 1, countBackgrounds(e.Elements()))
}

func TestSetBackground_ListenerFollowsCompletionOrder(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(32, 32, red)

	var (
		mu       sync.Mutex
		seen     []string
		inFlight int32
		overlaps int32
	)
	e := newTestEditor(t, loader, WithStatusListener(func(s string) {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
		atomic.AddInt32(&inFlight, -1)
	}))
	p, navyVariant, whiteVariant := testProduct()

	const swaps = 20
	var wg sync.WaitGroup
	for i := 0; i < swaps; i++ {
		// white has no photo in the loader and ends in an error status
		variant := navyVariant
		if i%2 == 1 {
			variant = whiteVariant
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-e.SetBackground(p, variant, catalog.ViewFront)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2*swaps
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, e.Status(), seen[len(seen)-1])
	assert.Zero(t, atomic.LoadInt32(&overlaps))
}

func TestSetBackground_ConcurrentEditsNeverLost(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(64, 64, red)
	loader.images["back.png"] = imaging.New(64, 32, red)
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()

	var wg sync.WaitGroup
	var outcomes []<-chan BackgroundOutcome
	for i := 0; i < 10; i++ {
		view := catalog.ViewFront
		if i%2 == 1 {
			view = catalog.ViewBack
		}
		outcomes = append(outcomes, e.SetBackground(p, v, view))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.AddText("x", "", 0, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	for _, ch := range outcomes {
		<-ch
	}

	elements := e.Elements()
	assert.Equal(t, 1, countBackgrounds(elements))
	assert.Len(t, elements, 11)
	assert.Equal(t, KindBackground, elements[0].Kind())
}

func TestZeroValueEditor(t *testing.T) {
	var e Editor
	_, err := e.AddImage(imaging.New(10, 10, red))
	assert.True(t, models.IsValidation(err))

	p, v, _ := testProduct()
	outcome := <-e.SetBackground(p, v, catalog.ViewFront)
	assert.True(t, models.IsValidation(outcome.Err))
}

func TestAddText(t *testing.T) {
	e := newTestEditor(t, newGateLoader())

	_, err := e.AddText("   ", "Arial", 20, "#000")
	assert.True(t, models.IsValidation(err))

	el, err := e.AddText("Hi", "", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "Arial", el.FontFamily)
	assert.Equal(t, float64(32), el.FontSize)
	assert.Equal(t, "#000000", el.FillColor)
	assert.Equal(t, Point{X: 300, Y: 300}, el.Position)
	assert.True(t, el.Interactive())
	assert.InDelta(t, 2*7*32.0/13.0, el.Width, 0.001)
	assert.Equal(t, float64(32), el.Height)
}

func TestAddImage_Scaling(t *testing.T) {
	e := newTestEditor(t, newGateLoader())

	_, err := e.AddImage(nil)
	assert.True(t, models.IsValidation(err))

	big, err := e.AddImage(imaging.New(1000, 500, red))
	require.NoError(t, err)
	assert.InDelta(t, 0.18, big.ScaleX, 0.0001)
	assert.InDelta(t, 180, big.Width*big.ScaleX, 0.001)

	small, err := e.AddImage(imaging.New(100, 50, red))
	require.NoError(t, err)
	assert.Equal(t, 1.0, small.ScaleX)
	assert.Equal(t, Point{X: 300, Y: 300}, small.Position)
}

func TestSelectAndRemove(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(10, 10, red)
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()
	<-e.SetBackground(p, v, catalog.ViewFront)

	a, _ := e.AddText("A", "", 0, "")
	b, _ := e.AddText("B", "", 0, "")

	assert.False(t, e.RemoveSelected(), "nothing selected")

	bg, _ := e.Background()
	assert.False(t, e.Select(bg.ID), "background cannot be selected")
	assert.False(t, e.RemoveSelected())
	assert.Len(t, e.Elements(), 3)

	require.True(t, e.Select(a.ID))
	assert.True(t, e.RemoveSelected())
	assert.Empty(t, e.Selected())

	content := e.Content()
	require.Len(t, content, 1)
	assert.Equal(t, b.ID, content[0].ElementID())
}

func TestClearKeepsBackground(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(10, 10, red)
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()
	<-e.SetBackground(p, v, catalog.ViewFront)

	e.AddText("A", "", 0, "")
	e.AddImage(imaging.New(5, 5, red))
	e.Clear()

	elements := e.Elements()
	require.Len(t, elements, 1)
	assert.Equal(t, KindBackground, elements[0].Kind())
}

func TestUpdate(t *testing.T) {
	e := newTestEditor(t, newGateLoader())
	el, _ := e.AddText("A", "", 0, "")

	assert.True(t, models.IsNotFound(e.Update("missing", Transform{ScaleX: 1, ScaleY: 1})))
	assert.True(t, models.IsValidation(e.Update(el.ID, Transform{ScaleX: 0, ScaleY: 1})))

	// width and height are intrinsic and not overwritten
	require.NoError(t, e.Update(el.ID, Transform{Position: Point{X: 10, Y: 20}, Width: 999, ScaleX: 1.5, ScaleY: 1.5, Angle: 90}))
	got := e.Content()[0].(TextContent)
	assert.Equal(t, Point{X: 10, Y: 20}, got.Position)
	assert.Equal(t, el.Width, got.Width)
	assert.Equal(t, 90.0, got.Angle)
}

func TestUpdate_ClampsGeometry(t *testing.T) {
	e := newTestEditor(t, newGateLoader())
	el, err := e.AddImage(imaging.New(50, 20, red))
	require.NoError(t, err)

	for _, bad := range []Transform{
		{ScaleX: math.NaN(), ScaleY: 1},
		{ScaleX: 1, ScaleY: math.Inf(1)},
		{Position: Point{X: math.Inf(-1)}, ScaleX: 1, ScaleY: 1},
		{ScaleX: 1, ScaleY: 1, Angle: math.NaN()},
	} {
		assert.True(t, models.IsValidation(e.Update(el.ID, bad)), "%+v", bad)
	}

	require.NoError(t, e.Update(el.ID, Transform{Position: Point{X: 1e12, Y: -1e12}, ScaleX: 1e7, ScaleY: 1e7, Angle: 725}))
	got := e.Content()[0].(ImageContent)
	assert.InDelta(t, 2400, got.Width*got.ScaleX, 0.001)
	assert.InDelta(t, 2400, got.Height*got.ScaleY, 0.001)
	assert.Equal(t, Point{X: 3000, Y: -2400}, got.Position)
	assert.InDelta(t, 5, got.Angle, 0.0001)

	canvas := e.Render()
	assert.Equal(t, image.Rect(0, 0, 600, 600), canvas.Bounds())
}

func TestLoadSnapshot_ClampsGeometry(t *testing.T) {
	e := newTestEditor(t, newGateLoader())

	require.NoError(t, e.LoadSnapshot(`{"canvasWidth":600,"canvasHeight":600,"elements":[
		{"type":"text","id":"t1","text":"Big","fontSize":32,"fill":"#000000",
		 "position":{"x":300,"y":300},"width":40,"height":32,"scaleX":10000000,"scaleY":10000000,"angle":0}]}`))
	got := e.Content()[0].(TextContent)
	assert.InDelta(t, 2400, got.Width*got.ScaleX, 0.001)
	assert.InDelta(t, 2400, got.Height*got.ScaleY, 0.001)
	e.Render()

	for _, bad := range []string{
		`{"elements":[{"type":"text","id":"t","text":"A","position":{"x":1,"y":1},"width":10,"height":10,"scaleX":-1,"scaleY":1}]}`,
		`{"elements":[{"type":"text","id":"t","text":"A","position":{"x":1,"y":1},"width":0,"height":10,"scaleX":1,"scaleY":1}]}`,
	} {
		assert.True(t, models.IsValidation(e.LoadSnapshot(bad)), bad)
	}
	assert.Equal(t, "t1", e.Content()[0].ElementID())
}

func TestSnapshotRoundTrip(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(10, 10, red)
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()
	<-e.SetBackground(p, v, catalog.ViewFront)

	text, _ := e.AddText("Team\nMerch", "Helvetica", 40, "#ff00ff")
	require.NoError(t, e.Update(text.ID, Transform{Position: Point{X: 100, Y: 150}, ScaleX: 1.2, ScaleY: 0.8, Angle: -30}))
	_, err := e.AddImage(imaging.New(30, 20, color.NRGBA{G: 0xff, A: 0x80}))
	require.NoError(t, err)

	snap, err := e.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, snap, "front.png", "background is not serialized")

	fresh := newTestEditor(t, newGateLoader())
	require.NoError(t, fresh.LoadSnapshot(snap))

	again, err := fresh.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, snap, again)

	original := e.Content()
	loaded := fresh.Content()
	require.Len(t, loaded, len(original))
	assert.Equal(t, original[0], loaded[0])
	assert.Equal(t, original[1].(ImageContent).Transform, loaded[1].(ImageContent).Transform)
	assert.Equal(t, original[1].ElementID(), loaded[1].ElementID())
}

func TestLoadSnapshot_InvalidLeavesContent(t *testing.T) {
	e := newTestEditor(t, newGateLoader())
	el, _ := e.AddText("Keep", "", 0, "")

	for _, bad := range []string{
		`not json`,
		`{"elements":[{"type":"shape","id":"x"}]}`,
		`{"elements":[{"type":"text","id":"x"}]}`,
		`{"elements":[{"type":"image","id":"x","src":"data:image/png;base64,AAAA"}]}`,
	} {
		assert.Error(t, e.LoadSnapshot(bad), bad)
	}

	content := e.Content()
	require.Len(t, content, 1)
	assert.Equal(t, el.ID, content[0].ElementID())
}

func TestRender(t *testing.T) {
	loader := newGateLoader()
	loader.images["front.png"] = imaging.New(100, 100, navy)
	e := newTestEditor(t, loader)
	p, v, _ := testProduct()
	<-e.SetBackground(p, v, catalog.ViewFront)

	canvas := e.Render()
	assert.Equal(t, image.Rect(0, 0, 600, 600), canvas.Bounds())
	assertNear(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, canvas.NRGBAAt(5, 5))
	assertNear(t, navy, canvas.NRGBAAt(300, 40))

	_, err := e.AddImage(imaging.New(40, 40, red))
	require.NoError(t, err)
	assertNear(t, red, e.Render().NRGBAAt(300, 300))

	url, err := e.RenderDataURL()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func assertNear(t *testing.T, want, got color.NRGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 2, "red")
	assert.InDelta(t, want.G, got.G, 2, "green")
	assert.InDelta(t, want.B, got.B, 2, "blue")
	assert.InDelta(t, want.A, got.A, 2, "alpha")
}

func TestRender_Text(t *testing.T) {
	e := newTestEditor(t, newGateLoader())
	_, err := e.AddText("MMMM", "", 26, "#000000")
	require.NoError(t, err)

	canvas := e.Render()
	dark := 0
	for x := 250; x < 350; x++ {
		for y := 280; y < 320; y++ {
			if canvas.NRGBAAt(x, y).R < 0x80 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0)
}

func TestParseColor(t *testing.T) {
	def := color.NRGBA{A: 1}
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, ParseColor("#fff", def))
	assert.Equal(t, navy, ParseColor("#1F2A44", def))
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 4}, ParseColor("#01020304", def))
	assert.Equal(t, def, ParseColor("navy", def))
}

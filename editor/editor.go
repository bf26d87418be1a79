// Package editor holds the live composition of a product mockup: one
// background photo plus the text and images the customer places on it.
package editor

import (
	"context"
	"image"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mymerch/catalog"
	"mymerch/logger"
	"mymerch/models"
)

const (
	backgroundFit = 0.9
	imageFit      = 0.3

	defaultFontFamily = "Arial"
	defaultFontSize   = 32
	defaultFillColor  = "#000000"
)

// Size is the canvas size in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultSize is used when New receives a non-positive size
var DefaultSize = Size{Width: 600, Height: 600}

// State is the background lifecycle of the editor
type State int

const (
	StateEmpty State = iota
	StateBackgroundLoading
	StateReady
	StateBackgroundError
)

func (s State) String() string {
	switch s {
	case StateBackgroundLoading:
		return "BackgroundLoading"
	case StateReady:
		return "Ready"
	case StateBackgroundError:
		return "BackgroundError"
	default:
		return "Empty"
	}
}

const (
	StatusLoading = "loading"
	StatusReady   = "ready"
)

// ImageLoader fetches and decodes a product photo
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// BackgroundOutcome is delivered once a background swap finishes. Err is a
// decode error when the fallback rectangle was used.
type BackgroundOutcome struct {
	Background Background
	Err        error
}

// Option configures an Editor
type Option func(*Editor)

// WithLoader sets the product photo loader
func WithLoader(l ImageLoader) Option {
	return func(e *Editor) { e.loader = l }
}

// WithStatusListener registers fn to receive every status change. Calls
// are never concurrent and arrive in the order the changes were made.
func WithStatusListener(fn func(status string)) Option {
	return func(e *Editor) { e.listener = fn }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(e *Editor) { e.log = logger.OrNop(log) }
}

// WithDecodeTimeout bounds each background download and decode
func WithDecodeTimeout(d time.Duration) Option {
	return func(e *Editor) { e.decodeTimeout = d }
}

// Editor is the scene being composed. All methods are safe for concurrent use.
type Editor struct {
	mu          sync.Mutex
	size        Size
	initialized bool
	background  *Background
	content     []Element
	selected    string
	state       State
	status      string
	lastErr     error

	loader        ImageLoader
	listener      func(string)
	pending       []string // statuses not yet delivered to listener
	delivering    bool
	log           *zap.Logger
	decodeTimeout time.Duration
}

// New creates an empty editor with no background
func New(size Size, opts ...Option) *Editor {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	e := &Editor{
		size:          size,
		initialized:   true,
		state:         StateEmpty,
		loader:        catalog.NewImageLoader(nil),
		log:           zap.NewNop(),
		decodeTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Size returns the canvas size
func (e *Editor) Size() Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

// State returns the background lifecycle state
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns "loading", "ready", "error: <cause>", or "" before the
// first background swap
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastError returns the decode error of the most recent failed swap
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// SetBackground replaces the product photo. The slot is cleared at once and
// the photo for view (front when the variant has no such view) is decoded on
// a goroutine. Swaps are not cancelled; whichever finishes last wins.
func (e *Editor) SetBackground(product catalog.Product, variant catalog.ColorVariant, view catalog.View) <-chan BackgroundOutcome {
	out := make(chan BackgroundOutcome, 1)

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		out <- BackgroundOutcome{Err: models.NewValidationError("Editor is not initialized")}
		close(out)
		return out
	}
	e.background = nil
	if e.selectedIsBackground() {
		e.selected = ""
	}
	e.state = StateBackgroundLoading
	e.setStatusLocked(StatusLoading)
	loader, timeout, size := e.loader, e.decodeTimeout, e.size
	e.mu.Unlock()
	e.deliverStatuses()

	src := variant.ImageFor(view)
	e.log.Debug("SetBackground: loading product photo",
		zap.String("productId", product.ID),
		zap.String("color", variant.ColorName),
		zap.String("view", string(view)))

	go func() {
		defer close(out)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		img, err := loader.Load(ctx, src)
		cancel()

		var outcome BackgroundOutcome
		if err != nil {
			outcome.Err = models.NewDecodeError(err, "Could not load %s %s image: %v", product.Name, view, err)
			outcome.Background = fallbackBackground(size, variant.ColorCode)
		} else {
			outcome.Background = fitBackground(size, img)
		}

		e.completeBackground(outcome)
		e.deliverStatuses()
		out <- outcome
	}()

	return out
}

func (e *Editor) completeBackground(outcome BackgroundOutcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bg := outcome.Background
	e.background = &bg
	if outcome.Err != nil {
		e.state = StateBackgroundError
		e.setStatusLocked("error: " + outcome.Err.Error())
		e.lastErr = outcome.Err
		e.log.Warn("SetBackground: using fallback background", zap.Error(outcome.Err))
	} else {
		e.state = StateReady
		e.setStatusLocked(StatusReady)
		e.lastErr = nil
	}
}

// setStatusLocked records status and queues it for the listener.
// e.mu must be held.
func (e *Editor) setStatusLocked(status string) {
	e.status = status
	if e.listener != nil {
		e.pending = append(e.pending, status)
	}
}

// deliverStatuses hands queued statuses to the listener without holding
// e.mu. Only one goroutine delivers at a time; others leave their statuses
// to it, so the listener sees them in queue order.
func (e *Editor) deliverStatuses() {
	e.mu.Lock()
	if e.delivering {
		e.mu.Unlock()
		return
	}
	e.delivering = true
	for len(e.pending) > 0 {
		status := e.pending[0]
		e.pending = e.pending[1:]
		e.mu.Unlock()
		e.listener(status)
		e.mu.Lock()
	}
	e.delivering = false
	e.mu.Unlock()
}

func (e *Editor) selectedIsBackground() bool {
	return e.background != nil && e.selected == e.background.ID
}

// fitBackground scales img to fit within 90% of the canvas and centers it
func fitBackground(size Size, img image.Image) Background {
	b := img.Bounds()
	scale := math.Min(
		backgroundFit*float64(size.Width)/float64(b.Dx()),
		backgroundFit*float64(size.Height)/float64(b.Dy()),
	)
	return Background{
		ID:       uuid.NewString(),
		Image:    img,
		Position: Point{X: float64(size.Width) / 2, Y: float64(size.Height) / 2},
		Width:    float64(b.Dx()) * scale,
		Height:   float64(b.Dy()) * scale,
	}
}

// fallbackBackground is a solid rectangle in the variant color
func fallbackBackground(size Size, colorCode string) Background {
	w := int(math.Round(backgroundFit * float64(size.Width)))
	h := int(math.Round(backgroundFit * float64(size.Height)))
	return Background{
		ID:       uuid.NewString(),
		Image:    imaging.New(w, h, ParseColor(colorCode, fallbackColor)),
		Position: Point{X: float64(size.Width) / 2, Y: float64(size.Height) / 2},
		Width:    float64(w),
		Height:   float64(h),
		Fallback: true,
	}
}

// AddText places text at the canvas center above existing content
func (e *Editor) AddText(text, fontFamily string, fontSize float64, fillColor string) (TextContent, error) {
	if strings.TrimSpace(text) == "" {
		return TextContent{}, models.NewValidationError("Text cannot be empty")
	}
	if fontFamily == "" {
		fontFamily = defaultFontFamily
	}
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	if fillColor == "" {
		fillColor = defaultFillColor
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return TextContent{}, models.NewValidationError("Editor is not initialized")
	}

	w, h := measureText(text, fontSize)
	el := TextContent{
		ID:         uuid.NewString(),
		Text:       text,
		FontFamily: fontFamily,
		FontSize:   fontSize,
		FillColor:  fillColor,
		Transform: Transform{
			Position: e.center(),
			Width:    w,
			Height:   h,
			ScaleX:   1,
			ScaleY:   1,
		},
	}
	e.content = append(e.content, el)
	return el, nil
}

// AddImage places bitmap at the canvas center, scaled down so its largest
// side is at most 30% of the shorter canvas side
func (e *Editor) AddImage(bitmap image.Image) (ImageContent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || bitmap == nil {
		return ImageContent{}, models.NewValidationError("Editor is not ready for images")
	}
	b := bitmap.Bounds()
	if b.Empty() {
		return ImageContent{}, models.NewValidationError("Image is empty")
	}

	scale := 1.0
	limit := imageFit * float64(min(e.size.Width, e.size.Height))
	if largest := float64(max(b.Dx(), b.Dy())); largest > limit {
		scale = limit / largest
	}

	el := ImageContent{
		ID:     uuid.NewString(),
		Bitmap: bitmap,
		Transform: Transform{
			Position: e.center(),
			Width:    float64(b.Dx()),
			Height:   float64(b.Dy()),
			ScaleX:   scale,
			ScaleY:   scale,
		},
	}
	e.content = append(e.content, el)
	return el, nil
}

// Select marks a content element as selected. Selecting the background or
// an unknown id clears the selection and returns false.
func (e *Editor) Select(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexOf(id) < 0 {
		e.selected = ""
		return false
	}
	e.selected = id
	return true
}

// Selected returns the selected content element id, or ""
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// RemoveSelected deletes the selected content element. It is a no-op when
// nothing is selected.
func (e *Editor) RemoveSelected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(e.selected)
	e.selected = ""
	if i < 0 {
		return false
	}
	e.content = append(e.content[:i:i], e.content[i+1:]...)
	return true
}

// Update replaces the geometry of a content element. Values must be
// finite; an oversized scale or a far-off position is clamped.
func (e *Editor) Update(id string, t Transform) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(id)
	if i < 0 {
		return models.NewNotFoundError("Element %s not found", id)
	}
	current, _ := transformOf(e.content[i])
	t.Width, t.Height = current.Width, current.Height
	t, err := t.bounded(e.size)
	if err != nil {
		return err
	}
	e.content[i] = withTransform(e.content[i], t)
	return nil
}

// Clear removes all content and keeps the background
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = nil
	e.selected = ""
}

// Background returns the current background, if one is set
func (e *Editor) Background() (Background, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.background == nil {
		return Background{}, false
	}
	return *e.background, true
}

// Elements returns the scene in paint order: background first, then content
func (e *Editor) Elements() []Element {
	e.mu.Lock()
	defer e.mu.Unlock()

	elements := make([]Element, 0, len(e.content)+1)
	if e.background != nil {
		elements = append(elements, *e.background)
	}
	return append(elements, e.content...)
}

// Content returns the content elements in paint order
func (e *Editor) Content() []Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Element(nil), e.content...)
}

func (e *Editor) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, el := range e.content {
		if el.ElementID() == id {
			return i
		}
	}
	return -1
}

func (e *Editor) center() Point {
	return Point{X: float64(e.size.Width) / 2, Y: float64(e.size.Height) / 2}
}

package sampler

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/achilleasa/tiletrace/types"
)

var (
	ErrInvalidParams       = errors.New("sampler: invalid tile size or viewport")
	ErrNotSized            = errors.New("sampler: SetSize has not been called")
	ErrVarianceMapMismatch = errors.New("sampler: variance map does not match the tile grid")
	ErrTargetSizeMismatch  = errors.New("sampler: upload target does not match the tile grid")
)

const (
	// Quantization range of raw variance values for a single pixel.
	varianceQuantization = 1e6

	// The initial size of the shrunk offsets grid.
	minShrunkTiles = 8
)

// Params configures the tile layout.
type Params struct {
	// Tile edge length in pixels for non-adaptive rendering.
	TileSize int

	// Tile edge length in pixels when adaptive sampling is enabled.
	AdaptiveTileSize int

	Adaptive bool
}

// The per-tile tables for a particular viewport. A layout is never modified
// in place by a resize; SetSize builds a new layout and swaps it in.
type layout struct {
	tileSize int
	viewSize image.Point
	cols     int
	rows     int

	samples  []uint32
	variance []float32
	marginal []float32
	offsets  []types.Vec2i

	shrunkCols int
	shrunkRows int
	shrunk     []types.Vec2i

	scale float32
}

func newLayout(tileSize int, viewSize image.Point) *layout {
	l := &layout{
		tileSize: tileSize,
		viewSize: viewSize,
		cols:     (viewSize.X + tileSize - 1) / tileSize,
		rows:     (viewSize.Y + tileSize - 1) / tileSize,
		scale:    varianceQuantization / float32(tileSize*tileSize),
	}

	tiles := l.cols * l.rows
	l.samples = make([]uint32, tiles)
	l.variance = make([]float32, tiles)
	l.offsets = make([]types.Vec2i, tiles)
	for row := 0; row < l.rows; row++ {
		for col := 0; col < l.cols; col++ {
			index := row*l.cols + col
			l.samples[index] = 1
			l.variance[index] = 1
			l.offsets[index] = types.Vec2i{int32(col), int32(row)}
		}
	}
	l.marginal = BuildMarginal(l.variance, l.cols, l.rows)

	// Grow the shrunk grid alternating between X and Y until it can
	// hold all tiles.
	l.shrunkCols, l.shrunkRows = minShrunkTiles, minShrunkTiles
	for growX := true; l.shrunkCols*l.shrunkRows < tiles; growX = !growX {
		if growX {
			l.shrunkCols *= 2
		} else {
			l.shrunkRows *= 2
		}
	}
	l.shrunk = make([]types.Vec2i, l.shrunkCols*l.shrunkRows)
	for index := range l.shrunk {
		l.shrunk[index] = l.offsets[index%tiles]
	}

	return l
}

// Get the number of pixels covered by a tile; tiles at the right and
// bottom edges may be clipped by the viewport.
func (l *layout) tileArea(col, row int) int {
	w := min(l.tileSize, l.viewSize.X-col*l.tileSize)
	h := min(l.tileSize, l.viewSize.Y-row*l.tileSize)
	return w * h
}

// An Option configures a TileSampler.
type Option func(*TileSampler)

// Use a specific quasi-random sequence for tile selection.
func WithSequence(seq QuasiRandom) Option {
	return func(ts *TileSampler) {
		ts.seq = seq
	}
}

// TileSampler distributes the per-pass sample budget across screen tiles
// proportionally to the per-tile variance reported by the renderer.
type TileSampler struct {
	mu     sync.Mutex
	seq    QuasiRandom
	layout *layout
}

// Create a new tile sampler. SetSize must be called before sampling.
func New(opts ...Option) *TileSampler {
	ts := &TileSampler{}
	for _, opt := range opts {
		opt(ts)
	}
	if ts.seq == nil {
		ts.seq = NewHaltonSequence()
	}
	return ts
}

// Set the viewport size and rebuild all per-tile tables. Calling SetSize
// with an unchanged tile size and viewport keeps the current state.
func (ts *TileSampler) SetSize(params Params, w, h int) error {
	tileSize := params.TileSize
	if params.Adaptive {
		tileSize = params.AdaptiveTileSize
	}
	if tileSize <= 0 || w <= 0 || h <= 0 {
		return fmt.Errorf("%w: tile size %d, viewport %dx%d", ErrInvalidParams, tileSize, w, h)
	}

	viewSize := image.Pt(w, h)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout != nil && ts.layout.tileSize == tileSize && ts.layout.viewSize == viewSize {
		return nil
	}

	ts.layout = newLayout(tileSize, viewSize)
	ts.seq.Reset()
	return nil
}

// Rewind the tile selection sequence.
func (ts *TileSampler) Reset() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.seq.Reset()
}

// Get the index of the next quasi-random draw.
func (ts *TileSampler) CurrentSample() uint32 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.seq.Index()
}

// Replace the variance map and rebuild the tile distribution. The map must
// contain exactly cols x rows entries in row-major order.
func (ts *TileSampler) GrabVarianceMap(cols, rows int, variance []float32) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.layout == nil {
		return ErrNotSized
	}
	if err := ts.layout.checkGrid(cols, rows, len(variance)); err != nil {
		return err
	}
	ts.grabVarianceMap(variance)
	return nil
}

// Replace the variance map using quantized per-tile sums as produced by a
// device reduction. Each value is divided by the quantization scale and the
// tile pixel area.
func (ts *TileSampler) GrabRawVarianceMap(cols, rows int, raw []int32) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	l := ts.layout
	if l == nil {
		return ErrNotSized
	}
	if err := l.checkGrid(cols, rows, len(raw)); err != nil {
		return err
	}

	variance := make([]float32, len(raw))
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			index := row*cols + col
			variance[index] = float32(raw[index]) / l.scale / float32(l.tileArea(col, row))
		}
	}
	ts.grabVarianceMap(variance)
	return nil
}

func (l *layout) checkGrid(cols, rows, n int) error {
	if cols != l.cols || rows != l.rows || n != cols*rows {
		return fmt.Errorf("%w: got %dx%d (%d values); expected %dx%d", ErrVarianceMapMismatch, cols, rows, n, l.cols, l.rows)
	}
	return nil
}

// Install a validated variance map. The caller must hold the lock.
func (ts *TileSampler) grabVarianceMap(variance []float32) {
	l := ts.layout
	next := make([]float32, len(variance))
	for index, v := range variance {
		if v > 0 {
			next[index] = v
		}
	}
	l.marginal = BuildMarginal(next, l.cols, l.rows)
	l.variance = next
}

// Draw the next tile to sample.
func (ts *TileSampler) NextTileToSample() (col, row int) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout == nil {
		return 0, 0
	}
	return ts.nextTile()
}

func (ts *TileSampler) nextTile() (col, row int) {
	l := ts.layout
	x, y := ts.seq.Next()
	row = sampleRow(l.marginal, y)
	col = sampleColumn(l.variance[row*l.cols:(row+1)*l.cols], x)
	return col, row
}

// Select the tiles for the next pass and update the per-tile sample counts.
// In adaptive mode every slot of the shrunk offsets grid receives a tile
// drawn from the variance distribution; otherwise every tile is selected
// once. The unique selected tiles are returned.
func (ts *TileSampler) SelectTiles(adaptive bool) ([]types.Vec2i, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	l := ts.layout
	if l == nil {
		return nil, ErrNotSized
	}

	if !adaptive {
		for index := range l.samples {
			l.samples[index]++
		}
		return append([]types.Vec2i(nil), l.offsets...), nil
	}

	seen := make([]bool, len(l.samples))
	selected := make([]types.Vec2i, 0, len(l.shrunk))
	for slot := range l.shrunk {
		col, row := ts.nextTile()
		index := row*l.cols + col
		l.shrunk[slot] = types.Vec2i{int32(col), int32(row)}
		l.samples[index]++
		if !seen[index] {
			seen[index] = true
			selected = append(selected, l.shrunk[slot])
		}
	}
	return selected, nil
}

// Copy the per-tile sample counts into dst in row-major order.
func (ts *TileSampler) UploadSamples(dst []uint32) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	l := ts.layout
	if l == nil {
		return ErrNotSized
	}
	if len(dst) != len(l.samples) {
		return fmt.Errorf("%w: got %d entries; expected %d", ErrTargetSizeMismatch, len(dst), len(l.samples))
	}
	copy(dst, l.samples)
	return nil
}

// Copy the tile offsets into dst. In adaptive mode the shrunk grid is used.
func (ts *TileSampler) UploadOffsets(dst []types.Vec2i, adaptive bool) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	l := ts.layout
	if l == nil {
		return ErrNotSized
	}
	src := l.offsets
	if adaptive {
		src = l.shrunk
	}
	if len(dst) != len(src) {
		return fmt.Errorf("%w: got %d entries; expected %d", ErrTargetSizeMismatch, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// Get the current layout for reading the fields that stay fixed until the
// next resize.
func (ts *TileSampler) current() *layout {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout == nil {
		return &layout{}
	}
	return ts.layout
}

// Get the tile edge length in pixels.
func (ts *TileSampler) TileSize() int {
	return ts.current().tileSize
}

// Get the number of tile columns.
func (ts *TileSampler) NbTilesX() int {
	return ts.current().cols
}

// Get the number of tile rows.
func (ts *TileSampler) NbTilesY() int {
	return ts.current().rows
}

// Get the total number of tiles.
func (ts *TileSampler) NbTiles() int {
	l := ts.current()
	return l.cols * l.rows
}

// Get the viewport size.
func (ts *TileSampler) ViewSize() image.Point {
	return ts.current().viewSize
}

// Get the dimensions of the offsets grid.
func (ts *TileSampler) NbOffsetTiles(adaptive bool) image.Point {
	l := ts.current()
	if adaptive {
		return image.Pt(l.shrunkCols, l.shrunkRows)
	}
	return image.Pt(l.cols, l.rows)
}

// Get the viewport covered by the offsets grid.
func (ts *TileSampler) OffsetTilesViewport(adaptive bool) image.Point {
	return ts.NbOffsetTiles(adaptive).Mul(ts.TileSize())
}

// Get the max sample count across all tiles.
func (ts *TileSampler) MaxTileSamples() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout == nil {
		return 0
	}

	var out uint32
	for _, n := range ts.layout.samples {
		out = max(out, n)
	}
	return int(out)
}

// Get the scale factor used for quantizing per-pixel variance.
func (ts *TileSampler) VarianceScaleFactor() float32 {
	return ts.current().scale
}

// Get a copy of the row marginal CDF.
func (ts *TileSampler) MarginalCDF() []float32 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout == nil {
		return nil
	}
	return append([]float32(nil), ts.layout.marginal...)
}

// Get a copy of the per-tile variance map.
func (ts *TileSampler) VarianceMap() []float32 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.layout == nil {
		return nil
	}
	return append([]float32(nil), ts.layout.variance...)
}

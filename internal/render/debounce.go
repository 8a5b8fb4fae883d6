package render

import (
	"math"
	"sync"
	"time"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// DefaultDebounceWindow is how long the debouncer waits for further strokes
// before flushing the merged dirty region.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer coalesces the dirty regions of rapid strokes into one merged
// viewport, flushed after a quiet window. It is the backpressure buffer in
// front of the pipeline: drawing never triggers one save per pointer event.
type Debouncer struct {
	window time.Duration
	flush  func(tilemath.Bounds)

	mu      sync.Mutex
	timer   *time.Timer
	pending *tilemath.Bounds
}

// NewDebouncer creates a Debouncer; window <= 0 uses the default. flush runs
// on the timer goroutine with the merged bounds.
func NewDebouncer(window time.Duration, flush func(tilemath.Bounds)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, flush: flush}
}

// Add merges b into the pending dirty region and (re)starts the quiet window.
func (d *Debouncer) Add(b tilemath.Bounds) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		cp := b
		d.pending = &cp
	} else {
		d.pending.South = math.Min(d.pending.South, b.South)
		d.pending.West = math.Min(d.pending.West, b.West)
		d.pending.North = math.Max(d.pending.North, b.North)
		d.pending.East = math.Max(d.pending.East, b.East)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.Flush)
}

// AddStroke merges the stroke's bounding region, padded by half its thickness.
func (d *Debouncer) AddStroke(s domain.Stroke) {
	if len(s.Points) == 0 {
		return
	}
	d.Add(StrokeBounds(s))
}

// Flush delivers the pending region immediately, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if pending != nil {
		d.flush(*pending)
	}
}

// StrokeBounds returns the geographic bounding box of a stroke, padded by half
// the pen thickness converted to degrees at the stroke's zoom.
func StrokeBounds(s domain.Stroke) tilemath.Bounds {
	b := tilemath.Bounds{
		South: s.Points[0].Lat, North: s.Points[0].Lat,
		West: s.Points[0].Lng, East: s.Points[0].Lng,
	}
	for _, p := range s.Points[1:] {
		b.South = math.Min(b.South, p.Lat)
		b.North = math.Max(b.North, p.Lat)
		b.West = math.Min(b.West, p.Lng)
		b.East = math.Max(b.East, p.Lng)
	}

	pad := s.Thickness / 2 * 360.0 / (math.Pow(2, float64(s.Zoom)) * tilemath.TileSize)
	b.South -= pad
	b.North += pad
	b.West -= pad
	b.East += pad
	return b
}

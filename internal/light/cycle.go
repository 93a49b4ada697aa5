package light

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultCycleDuration is how long one pass over the palette takes.
const DefaultCycleDuration = 120 * time.Second

// Cycle walks a fixed palette, handing out the next entry once per interval.
// It does not know about auto mode; callers decide whether to tick it.
type Cycle struct {
	palette  []Color
	interval time.Duration
	cursor   int

	last  time.Time
	fired bool
}

// NewCycle spreads total evenly over the palette entries. The palette is
// copied.
func NewCycle(palette []Color, total time.Duration) (*Cycle, error) {
	if len(palette) == 0 {
		return nil, errors.New("palette is empty")
	}
	if total <= 0 {
		total = DefaultCycleDuration
	}
	interval := total / time.Duration(len(palette))
	if interval <= 0 {
		return nil, errors.Errorf("cycle duration %s too short for %d colors", total, len(palette))
	}
	p := make([]Color, len(palette))
	copy(p, palette)
	return &Cycle{palette: p, interval: interval}, nil
}

// Tick returns the entry under the cursor and advances it if an interval has
// passed since the last advancement. The first call always fires.
func (c *Cycle) Tick(now time.Time) (Color, bool) {
	if c.fired && now.Sub(c.last) < c.interval {
		return Color{}, false
	}
	c.last = now
	c.fired = true

	col := c.palette[c.cursor]
	c.cursor = (c.cursor + 1) % len(c.palette)
	return col, true
}

func (c *Cycle) Cursor() int             { return c.cursor }
func (c *Cycle) Interval() time.Duration { return c.interval }
func (c *Cycle) Len() int                { return len(c.palette) }

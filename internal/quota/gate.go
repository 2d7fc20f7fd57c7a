package quota

import (
	"fmt"
	"sync"
	"time"

	"adscribe/internal/services"
)

// DefaultDailyLimit is the number of admissions allowed per calendar day.
const DefaultDailyLimit = 50

// Snapshot reports the gate's counters at a point in time.
type Snapshot struct {
	Count       int
	Limit       int
	Remaining   int
	WindowStart time.Time
	ResetAt     time.Time
}

// Gate is a process-wide daily admission counter. The count resets on the first
// access after the calendar date changes in the gate's location. State lives in
// memory only; a restart starts a fresh day.
type Gate struct {
	mu          sync.Mutex
	limit       int
	count       int
	windowStart time.Time
	now         func() time.Time
	loc         *time.Location
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLocation sets the timezone whose midnight starts a new quota day.
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// New constructs a gate admitting up to limit requests per day. Non-positive
// limits fall back to DefaultDailyLimit.
func New(limit int, opts ...Option) *Gate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	g := &Gate{limit: limit, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(g)
	}
	g.windowStart = g.today()
	return g
}

// Admit consumes one unit of quota. It returns false without mutating the count
// once the daily limit is reached, along with the remaining allowance.
func (g *Gate) Admit() (bool, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollover()
	if g.count >= g.limit {
		return false, 0
	}
	g.count++
	return true, g.limit - g.count
}

// Check is Admit expressed as an error carrying services.ErrQuotaExceeded.
func (g *Gate) Check() error {
	if ok, _ := g.Admit(); ok {
		return nil
	}
	return services.Wrap(services.ErrQuotaExceeded, "", "admit", fmt.Sprintf("limit of %d requests per day reached", g.limit), nil)
}

// Status reports the current counters, applying a pending day rollover first.
func (g *Gate) Status() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rollover()
	return Snapshot{
		Count:       g.count,
		Limit:       g.limit,
		Remaining:   g.limit - g.count,
		WindowStart: g.windowStart,
		ResetAt:     g.windowStart.AddDate(0, 0, 1),
	}
}

// Limit returns the configured daily limit.
func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) rollover() {
	if today := g.today(); !today.Equal(g.windowStart) {
		g.windowStart = today
		g.count = 0
	}
}

func (g *Gate) today() time.Time {
	now := g.now().In(g.loc)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, g.loc)
}

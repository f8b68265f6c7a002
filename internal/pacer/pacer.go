// Package pacer gates unit emission against an externally delivered tick
// stream. It never emits more than one unit per tick and guarantees a full
// trailing interval after the final emission before reporting done.
package pacer

// Action tells the caller what to do with the current tick.
type Action int

const (
	// Wait means nothing is eligible on this tick.
	Wait Action = iota
	// Emit means exactly one unit should be sent now.
	Emit
	// Done means all units were sent and the trailing interval elapsed.
	Done
)

// Pacer is a counter-based gate over a fixed number of units. It is owned by
// a single event loop and is not safe for concurrent use.
type Pacer struct {
	total    int
	interval int
	ticks    int
	next     int
	emitted  int
	done     bool
}

// New returns a pacer for total units. The first unit becomes eligible after
// initialWait ticks, each subsequent one interval ticks after the previous
// emission.
func New(total, initialWait, interval int) *Pacer {
	return &Pacer{
		total:    total,
		interval: interval,
		next:     initialWait,
	}
}

// Tick advances the counter by one and reports the action for this tick.
// Eligibility is ">=" so a delayed tick stream still triggers exactly one
// emission, never a burst.
func (p *Pacer) Tick() Action {
	if p.done {
		return Done
	}
	p.ticks++

	if p.emitted < p.total && p.ticks >= p.next {
		p.emitted++
		p.next = p.ticks + p.interval
		return Emit
	}

	if p.emitted >= p.total && p.ticks >= p.next {
		p.done = true
		return Done
	}
	return Wait
}

// NextIndex is the zero-based index of the unit the next Emit refers to.
// After an Emit, the emitted unit's index is NextIndex()-1.
func (p *Pacer) NextIndex() int { return p.emitted }

// Emitted reports how many units have been released so far.
func (p *Pacer) Emitted() int { return p.emitted }

// Ticks reports how many ticks have been consumed.
func (p *Pacer) Ticks() int { return p.ticks }

// Done reports whether the pacer reached its terminal state.
func (p *Pacer) Done() bool { return p.done }

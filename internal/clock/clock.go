package clock

import "github.com/anikeaty08/linera-game/internal/domain"

const (
	Second uint64 = 1_000_000

	DefaultStart      = 300 * Second
	DefaultIncrement  = 10 * Second
	DefaultBlockDelay = 5 * Second
)

// Timeouts seeds a Clock. Values are microseconds.
type Timeouts struct {
	Start      uint64 `json:"start" yaml:"start"`
	Increment  uint64 `json:"increment" yaml:"increment"`
	BlockDelay uint64 `json:"block_delay" yaml:"block_delay"`
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Start: DefaultStart, Increment: DefaultIncrement, BlockDelay: DefaultBlockDelay}
}

// Clock tracks remaining think time per seat. All timestamps are host
// supplied microseconds.
type Clock struct {
	TimeLeft   [2]uint64 `json:"time_left"`
	Increment  uint64    `json:"increment"`
	BlockDelay uint64    `json:"block_delay"`
	TurnStart  uint64    `json:"turn_start"`
}

func New(t Timeouts, now uint64) Clock {
	return Clock{
		TimeLeft:   [2]uint64{t.Start, t.Start},
		Increment:  t.Increment,
		BlockDelay: t.BlockDelay,
		TurnStart:  now,
	}
}

func (c Clock) elapsed(now uint64) uint64 {
	if now < c.TurnStart {
		return 0
	}
	return now - c.TurnStart
}

// Advance charges the mover for the turn and starts the next one.
// When the elapsed time exceeds what the mover has left, nothing is
// deducted; the move still counts and the turn restarts at now.
func (c *Clock) Advance(now uint64, mover domain.Seat) {
	e := c.elapsed(now)
	if c.TimeLeft[mover] >= e {
		c.TimeLeft[mover] = c.TimeLeft[mover] - e + c.Increment
	}
	c.TurnStart = now
}

// HasTimedOut reports whether seat has used more than its remaining time
// since the current turn began.
func (c Clock) HasTimedOut(now uint64, seat domain.Seat) bool {
	return c.TimeLeft[seat] < c.elapsed(now)
}

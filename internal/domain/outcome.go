package domain

import (
	"encoding/json"
	"fmt"
)

// Seat is one of the two fixed positions of a game record.
type Seat uint8

const (
	SeatOne Seat = 0
	SeatTwo Seat = 1
)

func (s Seat) Other() Seat {
	if s == SeatOne {
		return SeatTwo
	}
	return SeatOne
}

func (s Seat) Valid() bool { return s == SeatOne || s == SeatTwo }

func (s Seat) String() string {
	switch s {
	case SeatOne:
		return "one"
	case SeatTwo:
		return "two"
	default:
		return fmt.Sprintf("seat(%d)", uint8(s))
	}
}

type OutcomeKind uint8

const (
	OutcomeInProgress OutcomeKind = iota
	OutcomeWinner
	OutcomeDraw
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeWinner:
		return "winner"
	case OutcomeDraw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Outcome is what every engine action and the dispatcher report.
// Winner is meaningful only when Kind is OutcomeWinner.
type Outcome struct {
	Kind   OutcomeKind
	Winner Seat
}

func InProgress() Outcome        { return Outcome{Kind: OutcomeInProgress} }
func Draw() Outcome              { return Outcome{Kind: OutcomeDraw} }
func WinnerIs(s Seat) Outcome    { return Outcome{Kind: OutcomeWinner, Winner: s} }
func (o Outcome) Terminal() bool { return o.Kind != OutcomeInProgress }

func (o Outcome) String() string {
	if o.Kind == OutcomeWinner {
		return "winner:" + o.Winner.String()
	}
	return o.Kind.String()
}

type outcomeJSON struct {
	Kind   string `json:"kind"`
	Winner *Seat  `json:"winner,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	out := outcomeJSON{Kind: o.Kind.String()}
	if o.Kind == OutcomeWinner {
		w := o.Winner
		out.Winner = &w
	}
	return json.Marshal(out)
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "winner":
		if in.Winner == nil || !in.Winner.Valid() {
			return fmt.Errorf("outcome winner missing or invalid")
		}
		*o = WinnerIs(*in.Winner)
	case "draw":
		*o = Draw()
	case "in_progress", "":
		*o = InProgress()
	default:
		return fmt.Errorf("unknown outcome kind %q", in.Kind)
	}
	return nil
}

// Package poker implements a heads-up hold'em hand between two seats.
package poker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anikeaty08/linera-game/internal/deck"
	"github.com/anikeaty08/linera-game/internal/domain"
)

var (
	ErrFolded            = errors.New("player has folded")
	ErrCannotCheck       = errors.New("cannot check, must call or raise")
	ErrInsufficientChips = errors.New("insufficient chips")
	ErrHandOver          = errors.New("hand is over")
	ErrBlindsTooLarge    = errors.New("blinds exceed starting chips")
)

type Stage uint8

const (
	PreFlop Stage = iota
	Flop
	Turn
	River
	Showdown
)

func (s Stage) String() string {
	switch s {
	case PreFlop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "showdown"
	}
}

type Action uint8

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case AllIn:
		return "all_in"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "raise":
		return Raise, true
	case "all_in", "allin":
		return AllIn, true
	}
	return 0, false
}

type ActionRecord struct {
	Seat      domain.Seat `json:"seat"`
	Action    Action      `json:"action"`
	Amount    uint64      `json:"amount"`
	Stage     Stage       `json:"stage"`
	Timestamp uint64      `json:"timestamp"`
}

type Game struct {
	Hands      [2][]deck.Card `json:"hands"`
	Community  []deck.Card    `json:"community"`
	Deck       []deck.Card    `json:"deck"`
	Pot        uint64         `json:"pot"`
	CurrentBet uint64         `json:"current_bet"`
	Bets       [2]uint64      `json:"bets"`
	Chips      [2]uint64      `json:"chips"`
	Active     domain.Seat    `json:"active"`
	Stage      Stage          `json:"stage"`
	Dealer     domain.Seat    `json:"dealer"`
	Folded     [2]bool        `json:"folded"`
	AllIn      [2]bool        `json:"all_in"`
	LastRaiser *domain.Seat   `json:"last_raiser,omitempty"`
	History    []ActionRecord `json:"history"`
	SmallBlind uint64         `json:"small_blind"`
	BigBlind   uint64         `json:"big_blind"`
}

// New deals a hand. Seat one is the dealer and posts the small blind;
// it acts first before the flop.
func New(startingChips, smallBlind, bigBlind, seed uint64) (*Game, error) {
	if smallBlind > startingChips || bigBlind > startingChips {
		return nil, ErrBlindsTooLarge
	}
	cards := deck.NewDeck(seed)
	var hands [2][]deck.Card
	for s := 0; s < 2; s++ {
		for n := 0; n < 2; n++ {
			c, _ := deck.Draw(&cards)
			hands[s] = append(hands[s], c)
		}
	}
	raiser := domain.SeatTwo
	return &Game{
		Hands:      hands,
		Community:  []deck.Card{},
		Deck:       cards,
		Pot:        smallBlind + bigBlind,
		CurrentBet: bigBlind,
		Bets:       [2]uint64{smallBlind, bigBlind},
		Chips:      [2]uint64{startingChips - smallBlind, startingChips - bigBlind},
		Active:     domain.SeatOne,
		Stage:      PreFlop,
		Dealer:     domain.SeatOne,
		LastRaiser: &raiser,
		History:    []ActionRecord{},
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
	}, nil
}

func (g *Game) ActiveSeat() domain.Seat { return g.Active }

// Act applies action for the active seat. amount is the raise size for
// Raise and defaults to the big blind. Errors leave the game unchanged.
func (g *Game) Act(action Action, amount *uint64, ts uint64) (domain.Outcome, error) {
	if g.Stage == Showdown {
		return domain.InProgress(), ErrHandOver
	}
	seat := g.Active
	if g.Folded[seat] {
		return domain.InProgress(), ErrFolded
	}

	switch action {
	case Fold:
		g.Folded[seat] = true
		g.record(seat, action, 0, ts)
		return domain.WinnerIs(seat.Other()), nil
	case Check:
		if g.Bets[seat] < g.CurrentBet {
			return domain.InProgress(), ErrCannotCheck
		}
	case Call:
		toCall := g.CurrentBet - g.Bets[seat]
		if toCall > g.Chips[seat] {
			g.pushAll(seat)
		} else {
			g.Pot += toCall
			g.Bets[seat] = g.CurrentBet
			g.Chips[seat] -= toCall
		}
	case Raise:
		raise := g.BigBlind
		if amount != nil {
			raise = *amount
		}
		toCall := g.CurrentBet - g.Bets[seat]
		if raise > g.Chips[seat] || toCall > g.Chips[seat]-raise {
			return domain.InProgress(), ErrInsufficientChips
		}
		total := toCall + raise
		g.Pot += total
		g.Chips[seat] -= total
		g.Bets[seat] = g.CurrentBet + raise
		g.CurrentBet = g.Bets[seat]
		g.LastRaiser = &seat
	case AllIn:
		g.pushAll(seat)
		if g.Bets[seat] > g.CurrentBet {
			g.CurrentBet = g.Bets[seat]
			g.LastRaiser = &seat
		}
	default:
		return domain.InProgress(), fmt.Errorf("unknown poker action %d", action)
	}

	var recorded uint64
	if amount != nil {
		recorded = *amount
	}
	g.record(seat, action, recorded, ts)

	if g.roundComplete() {
		g.advance()
	} else {
		g.Active = seat.Other()
	}
	if g.Stage == Showdown {
		return g.showdown(), nil
	}
	return domain.InProgress(), nil
}

func (g *Game) pushAll(seat domain.Seat) {
	chips := g.Chips[seat]
	g.Pot += chips
	g.Bets[seat] += chips
	g.Chips[seat] = 0
	g.AllIn[seat] = true
}

func (g *Game) record(seat domain.Seat, a Action, amount, ts uint64) {
	g.History = append(g.History, ActionRecord{Seat: seat, Action: a, Amount: amount, Stage: g.Stage, Timestamp: ts})
}

func (g *Game) roundComplete() bool {
	if g.AllIn[0] || g.AllIn[1] {
		return true
	}
	if g.Bets[0] != g.Bets[1] {
		return false
	}
	n := 0
	for _, r := range g.History {
		if r.Stage == g.Stage {
			n++
		}
	}
	return n >= 2
}

func (g *Game) advance() {
	g.Bets = [2]uint64{}
	g.CurrentBet = 0
	g.LastRaiser = nil

	deal := 0
	switch g.Stage {
	case PreFlop:
		g.Stage, deal = Flop, 3
	case Flop:
		g.Stage, deal = Turn, 1
	case Turn:
		g.Stage, deal = River, 1
	case River:
		g.Stage = Showdown
		return
	default:
		return
	}
	for i := 0; i < deal; i++ {
		if c, ok := deck.Draw(&g.Deck); ok {
			g.Community = append(g.Community, c)
		}
	}
	g.Active = g.Dealer.Other()
}

func (g *Game) showdown() domain.Outcome {
	one := EvaluateHand(g.Hands[0], g.Community)
	two := EvaluateHand(g.Hands[1], g.Community)
	switch {
	case one > two:
		return domain.WinnerIs(domain.SeatOne)
	case two > one:
		return domain.WinnerIs(domain.SeatTwo)
	default:
		return domain.Draw()
	}
}

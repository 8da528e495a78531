// Package blackjack plays one player's hands against the house from a
// six-deck shoe.
package blackjack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anikeaty08/linera-game/internal/deck"
	"github.com/anikeaty08/linera-game/internal/domain"
)

var (
	ErrNotPlayerTurn     = errors.New("not player's turn")
	ErrCannotDouble      = errors.New("can only double on first two cards")
	ErrCannotSplit       = errors.New("cannot split")
	ErrNoInsurance       = errors.New("insurance only available when dealer shows ace")
	ErrInsuranceTaken    = errors.New("insurance already taken")
	ErrInsufficientChips = errors.New("insufficient chips")
)

type Action uint8

const (
	Hit Action = iota
	Stand
	Double
	Split
	Insurance
)

func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	case Insurance:
		return "insurance"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit":
		return Hit, true
	case "stand":
		return Stand, true
	case "double":
		return Double, true
	case "split":
		return Split, true
	case "insurance":
		return Insurance, true
	}
	return 0, false
}

type Result uint8

const (
	Win Result = iota
	Lose
	Push
	Blackjack
	Bust
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Push:
		return "push"
	case Blackjack:
		return "blackjack"
	default:
		return "bust"
	}
}

// HandResult settles one player hand by index.
type HandResult struct {
	Hand   int    `json:"hand"`
	Result Result `json:"result"`
}

type Game struct {
	Hands        [][]deck.Card `json:"hands"`
	Dealer       []deck.Card   `json:"dealer"`
	Deck         []deck.Card   `json:"deck"`
	Current      int           `json:"current"`
	Bets         []uint64      `json:"bets"`
	Chips        uint64        `json:"chips"`
	IsPlayerTurn bool          `json:"is_player_turn"`
	IsGameOver   bool          `json:"is_game_over"`
	InsuranceBet *uint64       `json:"insurance_bet,omitempty"`
	Results      []HandResult  `json:"results"`
}

// New debits bet from chips and deals two cards each to player and dealer.
func New(bet, chips, seed uint64) (*Game, error) {
	if bet > chips {
		return nil, ErrInsufficientChips
	}
	shoe := deck.NewShoe(seed)
	hand := make([]deck.Card, 0, 2)
	dealer := make([]deck.Card, 0, 2)
	for i := 0; i < 2; i++ {
		c, _ := deck.Draw(&shoe)
		hand = append(hand, c)
	}
	for i := 0; i < 2; i++ {
		c, _ := deck.Draw(&shoe)
		dealer = append(dealer, c)
	}
	return &Game{
		Hands:        [][]deck.Card{hand},
		Dealer:       dealer,
		Deck:         shoe,
		Bets:         []uint64{bet},
		Chips:        chips - bet,
		IsPlayerTurn: true,
		Results:      []HandResult{},
	}, nil
}

// VisibleDealer hides the hole card while the player is still acting.
func (g *Game) VisibleDealer() []deck.Card {
	if g.IsPlayerTurn && len(g.Dealer) > 0 {
		return g.Dealer[:1]
	}
	return g.Dealer
}

// HandValue counts aces as 11, dropping to 1 while the total is over 21.
func HandValue(cards []deck.Card) uint32 {
	var v, aces uint32
	for _, c := range cards {
		switch {
		case c.Rank >= 2 && c.Rank <= 10:
			v += uint32(c.Rank)
		case c.Rank >= deck.Jack && c.Rank <= deck.King:
			v += 10
		case c.Rank == deck.Ace:
			v += 11
			aces++
		}
	}
	for v > 21 && aces > 0 {
		v -= 10
		aces--
	}
	return v
}

func isNatural(cards []deck.Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}

func (g *Game) Act(action Action) (domain.Outcome, error) {
	if !g.IsPlayerTurn || g.IsGameOver {
		return domain.InProgress(), ErrNotPlayerTurn
	}
	switch action {
	case Hit:
		g.draw(g.Current)
		if HandValue(g.Hands[g.Current]) > 21 {
			g.settle(g.Current, Bust)
			g.nextHand()
		}
	case Stand:
		g.nextHand()
	case Double:
		if len(g.Hands[g.Current]) != 2 {
			return domain.InProgress(), ErrCannotDouble
		}
		bet := g.Bets[g.Current]
		if bet > g.Chips {
			return domain.InProgress(), ErrInsufficientChips
		}
		g.Chips -= bet
		g.Bets[g.Current] *= 2
		g.draw(g.Current)
		if HandValue(g.Hands[g.Current]) > 21 {
			g.settle(g.Current, Bust)
		}
		g.nextHand()
	case Split:
		hand := g.Hands[g.Current]
		if len(hand) != 2 || hand[0].Rank != hand[1].Rank {
			return domain.InProgress(), ErrCannotSplit
		}
		bet := g.Bets[g.Current]
		if bet > g.Chips {
			return domain.InProgress(), ErrInsufficientChips
		}
		g.Chips -= bet
		g.Hands[g.Current] = []deck.Card{hand[0]}
		g.Hands = append(g.Hands, []deck.Card{hand[1]})
		g.Bets = append(g.Bets, bet)
		g.draw(g.Current)
		g.draw(len(g.Hands) - 1)
	case Insurance:
		if g.Dealer[0].Rank != deck.Ace {
			return domain.InProgress(), ErrNoInsurance
		}
		if g.InsuranceBet != nil {
			return domain.InProgress(), ErrInsuranceTaken
		}
		cost := g.Bets[0] / 2
		if cost > g.Chips {
			return domain.InProgress(), ErrInsufficientChips
		}
		g.Chips -= cost
		g.InsuranceBet = &cost
	default:
		return domain.InProgress(), fmt.Errorf("unknown blackjack action %d", action)
	}

	if !g.IsPlayerTurn {
		g.playDealer()
		g.resolve()
	}
	if !g.IsGameOver {
		return domain.InProgress(), nil
	}
	return g.outcome(), nil
}

func (g *Game) draw(hand int) {
	if c, ok := deck.Draw(&g.Deck); ok {
		g.Hands[hand] = append(g.Hands[hand], c)
	}
}

func (g *Game) settle(hand int, r Result) {
	g.Results = append(g.Results, HandResult{Hand: hand, Result: r})
}

func (g *Game) settled(hand int) bool {
	for _, r := range g.Results {
		if r.Hand == hand {
			return true
		}
	}
	return false
}

func (g *Game) nextHand() {
	g.Current++
	if g.Current >= len(g.Hands) {
		g.Current = len(g.Hands) - 1
		g.IsPlayerTurn = false
	}
}

func (g *Game) playDealer() {
	for HandValue(g.Dealer) < 17 {
		c, ok := deck.Draw(&g.Deck)
		if !ok {
			return
		}
		g.Dealer = append(g.Dealer, c)
	}
}

func (g *Game) resolve() {
	dealer := HandValue(g.Dealer)
	dealerBust := dealer > 21
	dealerNatural := isNatural(g.Dealer)

	if g.InsuranceBet != nil && dealerNatural {
		g.Chips += *g.InsuranceBet * 3
	}

	for i, hand := range g.Hands {
		if g.settled(i) {
			continue
		}
		v := HandValue(hand)
		natural := isNatural(hand)
		bet := g.Bets[i]
		var r Result
		switch {
		case natural && !dealerNatural:
			g.Chips += bet * 5 / 2
			r = Blackjack
		case dealerBust:
			g.Chips += bet * 2
			r = Win
		case dealerNatural && !natural:
			r = Lose
		case v > dealer:
			g.Chips += bet * 2
			r = Win
		case v < dealer:
			r = Lose
		default:
			g.Chips += bet
			r = Push
		}
		g.settle(i, r)
	}
	g.IsGameOver = true
}

func (g *Game) outcome() domain.Outcome {
	allPush := true
	for _, r := range g.Results {
		if r.Result == Win || r.Result == Blackjack {
			return domain.WinnerIs(domain.SeatOne)
		}
		if r.Result != Push {
			allPush = false
		}
	}
	if allPush {
		return domain.Draw()
	}
	return domain.WinnerIs(domain.SeatTwo)
}

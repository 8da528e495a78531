// Package deck builds seeded card decks for the card games.
// The shuffle is reproducible from its seed and is not suitable where
// unpredictability matters.
package deck

import "fmt"

type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

var suits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

func (s Suit) String() string {
	switch s {
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Clubs:
		return "c"
	case Spades:
		return "s"
	default:
		return "?"
	}
}

const (
	Jack  uint8 = 11
	Queen uint8 = 12
	King  uint8 = 13
	Ace   uint8 = 14
)

type Card struct {
	Rank uint8 `json:"rank"`
	Suit Suit  `json:"suit"`
}

func (c Card) String() string {
	var r string
	switch c.Rank {
	case 10:
		r = "T"
	case Jack:
		r = "J"
	case Queen:
		r = "Q"
	case King:
		r = "K"
	case Ace:
		r = "A"
	default:
		r = fmt.Sprintf("%d", c.Rank)
	}
	return r + c.Suit.String()
}

const (
	multiplier = 6364136223846793005
	increment  = 1

	// ShoeDecks is the number of decks in a blackjack shoe.
	ShoeDecks = 6
)

// Next advances a linear congruential generator. Overflow wraps.
func Next(state uint64) uint64 {
	return state*multiplier + increment
}

// Shuffle permutes cards in place with a Fisher-Yates pass driven by Next.
func Shuffle(cards []Card, seed uint64) {
	state := seed
	for i := len(cards) - 1; i > 0; i-- {
		state = Next(state)
		j := int(state % uint64(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func ordered(decks int) []Card {
	out := make([]Card, 0, 52*decks)
	for d := 0; d < decks; d++ {
		for _, s := range suits {
			for r := uint8(2); r <= Ace; r++ {
				out = append(out, Card{Rank: r, Suit: s})
			}
		}
	}
	return out
}

// NewDeck returns a shuffled 52-card deck.
func NewDeck(seed uint64) []Card {
	cards := ordered(1)
	Shuffle(cards, seed)
	return cards
}

// NewShoe returns ShoeDecks concatenated decks shuffled together.
func NewShoe(seed uint64) []Card {
	cards := ordered(ShoeDecks)
	Shuffle(cards, seed)
	return cards
}

// Draw pops the last card. ok is false when the pile is empty.
func Draw(pile *[]Card) (c Card, ok bool) {
	n := len(*pile)
	if n == 0 {
		return Card{}, false
	}
	c = (*pile)[n-1]
	*pile = (*pile)[:n-1]
	return c, true
}

package poker

import "github.com/anikeaty08/linera-game/internal/deck"

// Hand tiers. A score is the tier base plus the rank that keys it.
// Kickers are not compared.
const (
	tierPair          = 100
	tierTwoPair       = 200
	tierTrips         = 300
	tierStraight      = 400
	tierFlush         = 500
	tierFullHouse     = 600
	tierQuads         = 700
	tierStraightFlush = 800
)

// EvaluateHand scores hole cards combined with the community cards.
// Straight and flush are detected independently of each other.
func EvaluateHand(hole, community []deck.Card) uint32 {
	var ranks [15]uint8
	var suits [4]uint8
	for _, set := range [2][]deck.Card{hole, community} {
		for _, c := range set {
			ranks[c.Rank]++
			suits[c.Suit]++
		}
	}

	flush := false
	for _, n := range suits {
		if n >= 5 {
			flush = true
		}
	}
	straight := hasStraight(ranks)

	var pairs, trips, quads []uint32
	var high uint32
	for r := 2; r <= 14; r++ {
		switch ranks[r] {
		case 2:
			pairs = append(pairs, uint32(r))
		case 3:
			trips = append(trips, uint32(r))
		case 4:
			quads = append(quads, uint32(r))
		}
		if ranks[r] > 0 {
			high = uint32(r)
		}
	}

	switch {
	case straight && flush:
		return tierStraightFlush + high
	case len(quads) > 0:
		return tierQuads + quads[0]
	case len(trips) > 0 && len(pairs) > 0:
		return tierFullHouse + trips[0]
	case flush:
		return tierFlush
	case straight:
		return tierStraight
	case len(trips) > 0:
		return tierTrips + trips[0]
	case len(pairs) >= 2:
		return tierTwoPair + pairs[len(pairs)-1]
	case len(pairs) == 1:
		return tierPair + pairs[0]
	default:
		return high
	}
}

func hasStraight(ranks [15]uint8) bool {
	run := 0
	for r := 14; r >= 2; r-- {
		if ranks[r] > 0 {
			run++
			if run >= 5 {
				return true
			}
		} else {
			run = 0
		}
	}
	return ranks[14] > 0 && ranks[2] > 0 && ranks[3] > 0 && ranks[4] > 0 && ranks[5] > 0
}

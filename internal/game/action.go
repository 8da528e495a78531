package game

import (
	"fmt"
	"strings"

	"github.com/anikeaty08/linera-game/internal/blackjack"
	"github.com/anikeaty08/linera-game/internal/chess"
	"github.com/anikeaty08/linera-game/internal/poker"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

type ActionKind uint8

const (
	ActionMove ActionKind = iota + 1
	ActionPoker
	ActionBlackjack
	ActionResign
	ActionOfferDraw
	ActionAcceptDraw
	ActionClaimTimeout
)

func (k ActionKind) String() string {
	switch k {
	case ActionMove:
		return gamedto.TypeMove
	case ActionPoker:
		return gamedto.TypePoker
	case ActionBlackjack:
		return gamedto.TypeBlackjack
	case ActionResign:
		return gamedto.TypeResign
	case ActionOfferDraw:
		return gamedto.TypeOfferDraw
	case ActionAcceptDraw:
		return gamedto.TypeAcceptDraw
	case ActionClaimTimeout:
		return gamedto.TypeClaimTimeout
	default:
		return fmt.Sprintf("action(%d)", uint8(k))
	}
}

// Action is one player request. Only the field matching Kind is read.
type Action struct {
	Kind ActionKind

	From, To  int
	Promotion *chess.PieceKind

	Poker  poker.Action
	Amount *uint64

	Blackjack blackjack.Action
}

func Move(from, to int, promotion *chess.PieceKind) Action {
	return Action{Kind: ActionMove, From: from, To: to, Promotion: promotion}
}

func PokerAct(a poker.Action, amount *uint64) Action {
	return Action{Kind: ActionPoker, Poker: a, Amount: amount}
}

func BlackjackAct(a blackjack.Action) Action {
	return Action{Kind: ActionBlackjack, Blackjack: a}
}

func Resign() Action       { return Action{Kind: ActionResign} }
func OfferDraw() Action    { return Action{Kind: ActionOfferDraw} }
func AcceptDraw() Action   { return Action{Kind: ActionAcceptDraw} }
func ClaimTimeout() Action { return Action{Kind: ActionClaimTimeout} }

// ParseAction converts the wire form. Unknown types and enum values are errors.
func ParseAction(req gamedto.ActionRequest) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case gamedto.TypeMove:
		if req.From == nil || req.To == nil {
			return Action{}, fmt.Errorf("move requires from and to")
		}
		var promo *chess.PieceKind
		if strings.TrimSpace(req.Promotion) != "" {
			k, ok := chess.ParsePieceKind(req.Promotion)
			if !ok {
				return Action{}, fmt.Errorf("unknown promotion %q", req.Promotion)
			}
			promo = &k
		}
		return Move(*req.From, *req.To, promo), nil
	case gamedto.TypePoker:
		a, ok := poker.ParseAction(req.Action)
		if !ok {
			return Action{}, fmt.Errorf("unknown poker action %q", req.Action)
		}
		return PokerAct(a, req.Amount), nil
	case gamedto.TypeBlackjack:
		a, ok := blackjack.ParseAction(req.Action)
		if !ok {
			return Action{}, fmt.Errorf("unknown blackjack action %q", req.Action)
		}
		return BlackjackAct(a), nil
	case gamedto.TypeResign:
		return Resign(), nil
	case gamedto.TypeOfferDraw:
		return OfferDraw(), nil
	case gamedto.TypeAcceptDraw:
		return AcceptDraw(), nil
	case gamedto.TypeClaimTimeout:
		return ClaimTimeout(), nil
	}
	return Action{}, fmt.Errorf("unknown action type %q", req.Type)
}

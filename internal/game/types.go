package game

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anikeaty08/linera-game/internal/blackjack"
	"github.com/anikeaty08/linera-game/internal/chess"
	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/poker"
)

type Kind string

const (
	KindChess     Kind = "chess"
	KindPoker     Kind = "poker"
	KindBlackjack Kind = "blackjack"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindChess, KindPoker, KindBlackjack:
		return k, true
	}
	return "", false
}

type Mode string

const (
	ModeVsBot    Mode = "vs_bot"
	ModeVsFriend Mode = "vs_friend"
	ModeLocal    Mode = "local"
)

func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeVsBot, ModeVsFriend, ModeLocal:
		return m, true
	}
	return "", false
}

type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusTimedOut   Status = "TIMED_OUT"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusTimedOut
}

const (
	BotSeatID = "BOT"
	BotName   = "AI Bot"
)

// Record is one game. Timestamps are host microseconds.
type Record struct {
	ID            string       `json:"id"`
	Kind          Kind         `json:"kind"`
	Mode          Mode         `json:"mode"`
	Status        Status       `json:"status"`
	Seats         [2]string    `json:"seats"`
	Names         [2]string    `json:"names"`
	CreatedAt     uint64       `json:"created_at"`
	UpdatedAt     uint64       `json:"updated_at"`
	Winner        *domain.Seat `json:"winner,omitempty"`
	DrawOfferedBy *domain.Seat `json:"draw_offered_by,omitempty"`
	Clock         clock.Clock  `json:"clock"`
	Payload       Payload      `json:"payload"`
}

var errPayloadKind = errors.New("payload does not match game kind")

// Validate checks the invariants a decoded record must hold.
func (r *Record) Validate() error {
	if r.ID == "" {
		return errors.New("record id is empty")
	}
	if r.Payload.Kind() != r.Kind {
		return fmt.Errorf("%w: %q vs %q", errPayloadKind, r.Payload.Kind(), r.Kind)
	}
	if r.Winner != nil && !r.Winner.Valid() {
		return fmt.Errorf("invalid winner seat %d", *r.Winner)
	}
	return nil
}

// Payload holds exactly one engine state, selected by its kind.
type Payload struct {
	kind      Kind
	chess     *chess.Board
	poker     *poker.Game
	blackjack *blackjack.Game
}

func ChessPayload(b *chess.Board) Payload         { return Payload{kind: KindChess, chess: b} }
func PokerPayload(g *poker.Game) Payload          { return Payload{kind: KindPoker, poker: g} }
func BlackjackPayload(g *blackjack.Game) Payload { return Payload{kind: KindBlackjack, blackjack: g} }

func (p Payload) Kind() Kind { return p.kind }

func (p Payload) Chess() (*chess.Board, bool)        { return p.chess, p.kind == KindChess }
func (p Payload) Poker() (*poker.Game, bool)         { return p.poker, p.kind == KindPoker }
func (p Payload) Blackjack() (*blackjack.Game, bool) { return p.blackjack, p.kind == KindBlackjack }

type payloadJSON struct {
	Kind  Kind            `json:"kind"`
	State json.RawMessage `json:"state"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	var state any
	switch p.kind {
	case KindChess:
		state = p.chess
	case KindPoker:
		state = p.poker
	case KindBlackjack:
		state = p.blackjack
	default:
		return nil, fmt.Errorf("marshal payload: unknown kind %q", p.kind)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payloadJSON{Kind: p.kind, State: raw})
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	var in payloadJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if len(in.State) == 0 || string(in.State) == "null" {
		return fmt.Errorf("payload %q has no state", in.Kind)
	}
	switch in.Kind {
	case KindChess:
		var v chess.Board
		if err := json.Unmarshal(in.State, &v); err != nil {
			return fmt.Errorf("decode chess state: %w", err)
		}
		*p = ChessPayload(&v)
	case KindPoker:
		var v poker.Game
		if err := json.Unmarshal(in.State, &v); err != nil {
			return fmt.Errorf("decode poker state: %w", err)
		}
		*p = PokerPayload(&v)
	case KindBlackjack:
		var v blackjack.Game
		if err := json.Unmarshal(in.State, &v); err != nil {
			return fmt.Errorf("decode blackjack state: %w", err)
		}
		*p = BlackjackPayload(&v)
	default:
		return fmt.Errorf("unknown payload kind %q", in.Kind)
	}
	return nil
}

// Clone returns a deep copy through the JSON form.
func (r *Record) Clone() (*Record, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/blackjack"
	"github.com/anikeaty08/linera-game/internal/chess"
	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/obslog"
	"github.com/anikeaty08/linera-game/internal/poker"
)

var (
	ErrNotFound        = errors.New("game_not_found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotInProgress   = errors.New("game_not_in_progress")
	ErrNotSeated       = errors.New("not_a_participant")
	ErrNotYourTurn     = errors.New("not_your_turn")
	ErrWrongAction     = errors.New("action_does_not_match_game")
	ErrNoDrawOffer     = errors.New("no_draw_offer")
	ErrNotTimedOut     = errors.New("opponent_not_timed_out")
	ErrNotWaiting      = errors.New("game_not_waiting")
	ErrNotCreator      = errors.New("not_creator")
)

// Store persists records. Update must apply fn as one atomic
// read-modify-write and write nothing when fn returns false or an error.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, fn func(rec *Record) (bool, error)) error
	ListBySeat(ctx context.Context, actor string) ([]*Record, error)
}

// Finished is handed to recorders once a game reaches a terminal outcome.
type Finished struct {
	GameID  string
	Kind    Kind
	Mode    Mode
	Status  Status
	Seats   [2]string
	Names   [2]string
	Outcome domain.Outcome
	At      uint64
}

type ResultRecorder interface {
	RecordResult(ctx context.Context, f Finished) error
}

// Tables holds the starting parameters for new games.
type Tables struct {
	PokerStartingChips uint64
	PokerSmallBlind    uint64
	PokerBigBlind      uint64
	BlackjackBet       uint64
	BlackjackChips     uint64
	Timeouts           clock.Timeouts
}

func DefaultTables() Tables {
	return Tables{
		PokerStartingChips: 1000,
		PokerSmallBlind:    10,
		PokerBigBlind:      20,
		BlackjackBet:       100,
		BlackjackChips:     1000,
		Timeouts:           clock.DefaultTimeouts(),
	}
}

type Orchestrator struct {
	store     Store
	recorders []ResultRecorder
	tables    Tables
	logger    *zap.Logger
	newID     func() string
}

type Option func(*Orchestrator)

func WithRecorder(r ResultRecorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorders = append(o.recorders, r)
		}
	}
}

func WithTables(t Tables) Option { return func(o *Orchestrator) { o.tables = t } }

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithIDGenerator(f func() string) Option { return func(o *Orchestrator) { o.newID = f } }

func NewOrchestrator(store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		tables: DefaultTables(),
		logger: obslog.L(),
		newID:  func() string { return "game_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply routes one action to its game. Every rejection, whatever the
// reason, reports InProgress with applied=false and leaves the record as
// it was. Callers cannot tell a rejected action from an accepted one that
// did not end the game except through applied.
func (o *Orchestrator) Apply(ctx context.Context, actor, gameID string, act Action, now uint64) (domain.Outcome, bool) {
	if strings.TrimSpace(actor) == "" {
		o.reject(gameID, actor, act, ErrUnauthenticated)
		return domain.InProgress(), false
	}
	var (
		outcome  domain.Outcome
		finished *Finished
	)
	err := o.store.Update(ctx, gameID, func(rec *Record) (bool, error) {
		finished = nil
		out, err := dispatch(rec, actor, act, now)
		if err != nil {
			return false, err
		}
		rec.UpdatedAt = now
		outcome = out
		if rec.Status.Terminal() {
			finished = &Finished{
				GameID: rec.ID, Kind: rec.Kind, Mode: rec.Mode, Status: rec.Status,
				Seats: rec.Seats, Names: rec.Names, Outcome: out, At: now,
			}
		}
		return true, nil
	})
	if err != nil {
		o.reject(gameID, actor, act, err)
		return domain.InProgress(), false
	}
	if finished != nil {
		o.logger.Info("game_finished",
			zap.String("game_id", finished.GameID),
			zap.String("kind", string(finished.Kind)),
			zap.String("status", string(finished.Status)),
			zap.String("outcome", outcome.String()),
		)
		o.notify(ctx, *finished)
	}
	return outcome, true
}

func (o *Orchestrator) reject(gameID, actor string, act Action, err error) {
	o.logger.Debug("game_action_rejected",
		zap.String("game_id", gameID),
		zap.String("actor", actor),
		zap.String("action", act.Kind.String()),
		zap.Error(err),
	)
}

func (o *Orchestrator) notify(ctx context.Context, f Finished) {
	for _, r := range o.recorders {
		if err := r.RecordResult(ctx, f); err != nil {
			o.logger.Warn("game_result_record_failed", zap.String("game_id", f.GameID), zap.Error(err))
		}
	}
}

// dispatch mutates rec in place. On error the caller discards rec.
func dispatch(rec *Record, actor string, act Action, now uint64) (domain.Outcome, error) {
	if rec.Status != StatusInProgress {
		return domain.InProgress(), ErrNotInProgress
	}
	seat, err := seatOf(rec, actor)
	if err != nil {
		return domain.InProgress(), err
	}

	switch act.Kind {
	case ActionMove, ActionPoker, ActionBlackjack:
		out, err := playEngine(rec, seat, act, now)
		if err != nil {
			return domain.InProgress(), err
		}
		rec.DrawOfferedBy = nil
		finish(rec, out, StatusCompleted)
		return out, nil
	case ActionResign:
		out := domain.WinnerIs(seat.Other())
		finish(rec, out, StatusCompleted)
		return out, nil
	case ActionOfferDraw:
		rec.DrawOfferedBy = &seat
		return domain.InProgress(), nil
	case ActionAcceptDraw:
		if rec.DrawOfferedBy == nil || *rec.DrawOfferedBy == seat {
			return domain.InProgress(), ErrNoDrawOffer
		}
		rec.DrawOfferedBy = nil
		finish(rec, domain.Draw(), StatusCompleted)
		return domain.Draw(), nil
	case ActionClaimTimeout:
		if err := timeoutClaimable(rec, seat, now); err != nil {
			return domain.InProgress(), err
		}
		out := domain.WinnerIs(seat)
		finish(rec, out, StatusTimedOut)
		return out, nil
	}
	return domain.InProgress(), fmt.Errorf("%w: %s", ErrWrongAction, act.Kind)
}

// seatOf resolves the acting seat. Vs-bot games accept only seat one; a
// local game seated twice with the same actor plays whichever seat is to move.
func seatOf(rec *Record, actor string) (domain.Seat, error) {
	if rec.Mode == ModeVsBot {
		if rec.Seats[0] == actor {
			return domain.SeatOne, nil
		}
		return 0, ErrNotSeated
	}
	one, two := rec.Seats[0] == actor, rec.Seats[1] == actor
	switch {
	case one && two:
		if s, ok := activeSeat(rec.Payload); ok {
			return s, nil
		}
		return domain.SeatOne, nil
	case one:
		return domain.SeatOne, nil
	case two:
		return domain.SeatTwo, nil
	}
	return 0, ErrNotSeated
}

// activeSeat reports the seat to move for engines that alternate turns.
func activeSeat(p Payload) (domain.Seat, bool) {
	switch p.Kind() {
	case KindChess:
		b, _ := p.Chess()
		return b.ActiveSeat(), true
	case KindPoker:
		g, _ := p.Poker()
		return g.ActiveSeat(), true
	case KindBlackjack:
		return 0, false
	}
	return 0, false
}

func playEngine(rec *Record, seat domain.Seat, act Action, now uint64) (domain.Outcome, error) {
	switch rec.Payload.Kind() {
	case KindChess:
		b, _ := rec.Payload.Chess()
		if act.Kind != ActionMove {
			return domain.InProgress(), ErrWrongAction
		}
		if b.ActiveSeat() != seat {
			return domain.InProgress(), ErrNotYourTurn
		}
		out, err := b.ApplyMove(act.From, act.To, act.Promotion, now)
		if err != nil {
			return domain.InProgress(), err
		}
		rec.Clock.Advance(now, seat)
		return out, nil
	case KindPoker:
		g, _ := rec.Payload.Poker()
		if act.Kind != ActionPoker {
			return domain.InProgress(), ErrWrongAction
		}
		if g.ActiveSeat() != seat {
			return domain.InProgress(), ErrNotYourTurn
		}
		out, err := g.Act(act.Poker, act.Amount, now)
		if err != nil {
			return domain.InProgress(), err
		}
		rec.Clock.Advance(now, seat)
		return out, nil
	case KindBlackjack:
		g, _ := rec.Payload.Blackjack()
		if act.Kind != ActionBlackjack {
			return domain.InProgress(), ErrWrongAction
		}
		// only the engine's player-turn flag gates blackjack
		return g.Act(act.Blackjack)
	}
	return domain.InProgress(), fmt.Errorf("unknown game kind %q", rec.Payload.Kind())
}

// timeoutClaimable reports whether the opponent's clock has run out. The
// turn order is not consulted, so blackjack tables can be claimed as well.
func timeoutClaimable(rec *Record, seat domain.Seat, now uint64) error {
	if !rec.Clock.HasTimedOut(now, seat.Other()) {
		return ErrNotTimedOut
	}
	return nil
}

func finish(rec *Record, out domain.Outcome, status Status) {
	switch out.Kind {
	case domain.OutcomeWinner:
		w := out.Winner
		rec.Winner = &w
		rec.Status = status
	case domain.OutcomeDraw:
		rec.Winner = nil
		rec.Status = status
	}
}

// CreateParams describes a new game. A zero Timeouts uses the table default.
type CreateParams struct {
	ID           string
	Kind         Kind
	Mode         Mode
	Creator      string
	CreatorName  string
	Opponent     string
	OpponentName string
	Timeouts     *clock.Timeouts
	Now          uint64
}

// Create seeds the engine from Now and stores the record. Friend games
// without an opponent wait for Join.
func (o *Orchestrator) Create(ctx context.Context, p CreateParams) (*Record, error) {
	if strings.TrimSpace(p.Creator) == "" {
		return nil, ErrUnauthenticated
	}
	if _, ok := ParseKind(string(p.Kind)); !ok {
		return nil, fmt.Errorf("unknown game kind %q", p.Kind)
	}
	if _, ok := ParseMode(string(p.Mode)); !ok {
		return nil, fmt.Errorf("unknown game mode %q", p.Mode)
	}
	payload, err := o.newPayload(p.Kind, p.Now)
	if err != nil {
		return nil, err
	}
	timeouts := o.tables.Timeouts
	if p.Timeouts != nil {
		timeouts = *p.Timeouts
	}
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = o.newID()
	}
	rec := &Record{
		ID:        id,
		Kind:      p.Kind,
		Mode:      p.Mode,
		Status:    StatusInProgress,
		Seats:     [2]string{p.Creator, p.Opponent},
		Names:     [2]string{p.CreatorName, p.OpponentName},
		CreatedAt: p.Now,
		UpdatedAt: p.Now,
		Clock:     clock.New(timeouts, p.Now),
		Payload:   payload,
	}
	switch {
	case p.Mode == ModeLocal:
		rec.Seats[1], rec.Names[1] = p.Creator, p.CreatorName
	case p.Mode == ModeVsBot || (p.Opponent == "" && p.Kind == KindBlackjack):
		rec.Seats[1], rec.Names[1] = BotSeatID, BotName
	case p.Opponent == "":
		rec.Status = StatusWaiting
	}
	if err := o.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	o.logger.Info("game_created",
		zap.String("game_id", rec.ID),
		zap.String("kind", string(rec.Kind)),
		zap.String("mode", string(rec.Mode)),
		zap.String("status", string(rec.Status)),
	)
	return rec, nil
}

func (o *Orchestrator) newPayload(k Kind, seed uint64) (Payload, error) {
	switch k {
	case KindChess:
		return ChessPayload(chess.NewBoard()), nil
	case KindPoker:
		g, err := poker.New(o.tables.PokerStartingChips, o.tables.PokerSmallBlind, o.tables.PokerBigBlind, seed)
		if err != nil {
			return Payload{}, err
		}
		return PokerPayload(g), nil
	case KindBlackjack:
		g, err := blackjack.New(o.tables.BlackjackBet, o.tables.BlackjackChips, seed)
		if err != nil {
			return Payload{}, err
		}
		return BlackjackPayload(g), nil
	}
	return Payload{}, fmt.Errorf("unknown game kind %q", k)
}

// Join seats actor as the second player of a waiting game and starts it.
func (o *Orchestrator) Join(ctx context.Context, gameID, actor, name string, now uint64) (*Record, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, ErrUnauthenticated
	}
	var joined *Record
	err := o.store.Update(ctx, gameID, func(rec *Record) (bool, error) {
		if rec.Status != StatusWaiting {
			return false, ErrNotWaiting
		}
		if rec.Seats[0] == actor {
			return false, ErrNotSeated
		}
		rec.Seats[1], rec.Names[1] = actor, name
		rec.Status = StatusInProgress
		rec.Clock.TurnStart = now
		rec.UpdatedAt = now
		joined = rec
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// Cancel lets the creator abandon a game nobody has joined.
func (o *Orchestrator) Cancel(ctx context.Context, gameID, actor string, now uint64) error {
	return o.store.Update(ctx, gameID, func(rec *Record) (bool, error) {
		if rec.Status != StatusWaiting {
			return false, ErrNotWaiting
		}
		if rec.Seats[0] != actor {
			return false, ErrNotCreator
		}
		rec.Status = StatusCancelled
		rec.UpdatedAt = now
		return true, nil
	})
}

func (o *Orchestrator) Get(ctx context.Context, gameID string) (*Record, error) {
	return o.store.Load(ctx, gameID)
}

func (o *Orchestrator) ListForActor(ctx context.Context, actor string) ([]*Record, error) {
	return o.store.ListBySeat(ctx, actor)
}

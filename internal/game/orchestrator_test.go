package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/anikeaty08/linera-game/internal/blackjack"
	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/poker"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string][]byte
}

func newMemStore() *memStore { return &memStore{recs: map[string][]byte{}} }

func (m *memStore) Create(_ context.Context, rec *Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = b
	return nil
}

func (m *memStore) Load(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *memStore) Update(ctx context.Context, id string, fn func(*Record) (bool, error)) error {
	rec, err := m.Load(ctx, id)
	if err != nil {
		return err
	}
	changed, err := fn(rec)
	if err != nil || !changed {
		return err
	}
	return m.Create(ctx, rec)
}

func (m *memStore) ListBySeat(ctx context.Context, actor string) ([]*Record, error) {
	var out []*Record
	for id := range m.recs {
		r, _ := m.Load(ctx, id)
		if r.Seats[0] == actor || r.Seats[1] == actor {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) raw(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.recs[id])
}

type captureRecorder struct{ got []Finished }

func (c *captureRecorder) RecordResult(_ context.Context, f Finished) error {
	c.got = append(c.got, f)
	return nil
}

const t0 = uint64(1_700_000_000_000_000)

func setup(t *testing.T, kind Kind, mode Mode, opponent string) (*Orchestrator, *memStore, *captureRecorder, *Record) {
	t.Helper()
	st := newMemStore()
	rec := &captureRecorder{}
	o := NewOrchestrator(st, WithRecorder(rec))
	g, err := o.Create(context.Background(), CreateParams{
		Kind: kind, Mode: mode, Creator: "alice", CreatorName: "Alice",
		Opponent: opponent, OpponentName: "Bob", Now: t0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return o, st, rec, g
}

func TestChessMoveAdvancesClock(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	now := t0 + 20*clock.Second
	out, ok := o.Apply(ctx, "alice", g.ID, Move(12, 28, nil), now)
	if !ok || out != domain.InProgress() {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	b, _ := got.Payload.Chess()
	if b.Active != domain.SeatTwo || b.EnPassant == nil || *b.EnPassant != 20 {
		t.Fatalf("board not updated")
	}
	if want := clock.DefaultStart - 20*clock.Second + clock.DefaultIncrement; got.Clock.TimeLeft[0] != want {
		t.Fatalf("time left=%d want %d", got.Clock.TimeLeft[0], want)
	}
	if got.Clock.TurnStart != now || got.UpdatedAt != now {
		t.Fatalf("turn start=%d updated=%d", got.Clock.TurnStart, got.UpdatedAt)
	}
}

func TestRejectionsLeaveRecord(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	before := st.raw(g.ID)
	cases := []struct {
		name  string
		actor string
		id    string
		act   Action
	}{
		{"unauthenticated", "", g.ID, Move(12, 28, nil)},
		{"unknown game", "alice", "missing", Move(12, 28, nil)},
		{"stranger", "mallory", g.ID, Move(12, 28, nil)},
		{"out of turn", "bob", g.ID, Move(52, 36, nil)},
		{"empty square", "alice", g.ID, Move(20, 28, nil)},
		{"wrong engine", "alice", g.ID, PokerAct(poker.Call, nil)},
		{"out of range", "alice", g.ID, Move(12, 99, nil)},
		{"accept without offer", "bob", g.ID, AcceptDraw()},
		{"early timeout claim", "bob", g.ID, ClaimTimeout()},
	}
	for _, c := range cases {
		for attempt := 0; attempt < 2; attempt++ {
			out, ok := o.Apply(ctx, c.actor, c.id, c.act, t0+5)
			if ok || out != domain.InProgress() {
				t.Fatalf("%s: out=%v ok=%v", c.name, out, ok)
			}
			if st.raw(g.ID) != before {
				t.Fatalf("%s: record mutated", c.name)
			}
		}
	}
}

func TestResignFinalizes(t *testing.T) {
	o, st, rec, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	out, ok := o.Apply(ctx, "bob", g.ID, Resign(), t0+1)
	if !ok || out != domain.WinnerIs(domain.SeatOne) {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusCompleted || got.Winner == nil || *got.Winner != domain.SeatOne {
		t.Fatalf("status=%s winner=%v", got.Status, got.Winner)
	}
	if len(rec.got) != 1 || rec.got[0].Outcome != out || rec.got[0].Seats != [2]string{"alice", "bob"} {
		t.Fatalf("recorder=%+v", rec.got)
	}
	final := st.raw(g.ID)
	if _, ok := o.Apply(ctx, "alice", g.ID, Move(12, 28, nil), t0+2); ok {
		t.Fatalf("completed game accepted a move")
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, Resign(), t0+2); ok {
		t.Fatalf("completed game accepted a resignation")
	}
	if st.raw(g.ID) != final || len(rec.got) != 1 {
		t.Fatalf("completed record mutated")
	}
}

func TestDrawOfferAndAccept(t *testing.T) {
	o, st, rec, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	if _, ok := o.Apply(ctx, "alice", g.ID, OfferDraw(), t0+1); !ok {
		t.Fatalf("offer rejected")
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, AcceptDraw(), t0+2); ok {
		t.Fatalf("offering seat accepted its own offer")
	}
	out, ok := o.Apply(ctx, "bob", g.ID, AcceptDraw(), t0+3)
	if !ok || out != domain.Draw() {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusCompleted || got.Winner != nil || got.DrawOfferedBy != nil {
		t.Fatalf("status=%s winner=%v", got.Status, got.Winner)
	}
	if len(rec.got) != 1 || rec.got[0].Outcome != domain.Draw() {
		t.Fatalf("recorder=%+v", rec.got)
	}
}

func TestMoveClearsDrawOffer(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	o.Apply(ctx, "bob", g.ID, OfferDraw(), t0+1)
	o.Apply(ctx, "alice", g.ID, Move(12, 28, nil), t0+2)
	got, _ := st.Load(ctx, g.ID)
	if got.DrawOfferedBy != nil {
		t.Fatalf("offer survived a move")
	}
}

func TestClaimTimeout(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	if _, ok := o.Apply(ctx, "bob", g.ID, ClaimTimeout(), t0+clock.Second); ok {
		t.Fatalf("claim accepted before the clock ran out")
	}
	late := t0 + clock.DefaultStart + clock.Second
	out, ok := o.Apply(ctx, "bob", g.ID, ClaimTimeout(), late)
	if !ok || out != domain.WinnerIs(domain.SeatTwo) {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusTimedOut || *got.Winner != domain.SeatTwo {
		t.Fatalf("status=%s", got.Status)
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, ClaimTimeout(), late+1); ok {
		t.Fatalf("claim accepted on a finished game")
	}
}

func TestClaimTimeoutByWaitingSeatOnMove(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "bob")
	ctx := context.Background()
	// alice is on the move; bob's clock is measured from the same instant
	late := t0 + clock.DefaultStart + clock.Second
	out, ok := o.Apply(ctx, "alice", g.ID, ClaimTimeout(), late)
	if !ok || out != domain.WinnerIs(domain.SeatOne) {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusTimedOut || *got.Winner != domain.SeatOne {
		t.Fatalf("status=%s winner=%v", got.Status, got.Winner)
	}
}

func TestClaimTimeoutOnBlackjack(t *testing.T) {
	st := newMemStore()
	o := NewOrchestrator(st)
	ctx := context.Background()
	g, err := o.Create(ctx, CreateParams{
		Kind: KindBlackjack, Mode: ModeVsFriend, Creator: "alice", CreatorName: "Alice",
		Opponent: "bob", OpponentName: "Bob",
		Timeouts: &clock.Timeouts{Start: 10, Increment: 0, BlockDelay: 0},
		Now:      0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	out, ok := o.Apply(ctx, "alice", g.ID, ClaimTimeout(), 1000)
	if !ok || out != domain.WinnerIs(domain.SeatOne) {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusTimedOut || *got.Winner != domain.SeatOne {
		t.Fatalf("status=%s", got.Status)
	}
}

func TestVsBotOnlySeatOne(t *testing.T) {
	o, _, rec, g := setup(t, KindPoker, ModeVsBot, "")
	ctx := context.Background()
	if g.Seats[1] != BotSeatID || g.Names[1] != BotName {
		t.Fatalf("seats=%v names=%v", g.Seats, g.Names)
	}
	if _, ok := o.Apply(ctx, BotSeatID, g.ID, PokerAct(poker.Call, nil), t0+1); ok {
		t.Fatalf("bot seat accepted")
	}
	out, ok := o.Apply(ctx, "alice", g.ID, PokerAct(poker.Fold, nil), t0+1)
	if !ok || out != domain.WinnerIs(domain.SeatTwo) {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	if len(rec.got) != 1 || rec.got[0].Mode != ModeVsBot {
		t.Fatalf("recorder=%+v", rec.got)
	}
}

func TestPokerTurnEnforced(t *testing.T) {
	o, st, _, g := setup(t, KindPoker, ModeVsFriend, "bob")
	ctx := context.Background()
	if _, ok := o.Apply(ctx, "bob", g.ID, PokerAct(poker.Call, nil), t0+1); ok {
		t.Fatalf("seat two acted out of turn")
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, PokerAct(poker.Call, nil), t0+2); !ok {
		t.Fatalf("call rejected")
	}
	got, _ := st.Load(ctx, g.ID)
	p, _ := got.Payload.Poker()
	if p.Pot != 40 || p.Active != domain.SeatTwo {
		t.Fatalf("pot=%d active=%v", p.Pot, p.Active)
	}
}

func TestBlackjackPlaysToCompletion(t *testing.T) {
	o, st, _, g := setup(t, KindBlackjack, ModeVsBot, "")
	ctx := context.Background()
	out, ok := o.Apply(ctx, "alice", g.ID, BlackjackAct(blackjack.Stand), t0+1)
	if !ok || !out.Terminal() {
		t.Fatalf("out=%v ok=%v", out, ok)
	}
	got, _ := st.Load(ctx, g.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("status=%s", got.Status)
	}
	bj, _ := got.Payload.Blackjack()
	if !bj.IsGameOver || bj.IsPlayerTurn {
		t.Fatalf("engine not finished")
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, BlackjackAct(blackjack.Hit), t0+2); ok {
		t.Fatalf("finished blackjack accepted a hit")
	}
}

func TestLocalModeActsForBothSeats(t *testing.T) {
	o, _, _, g := setup(t, KindChess, ModeLocal, "")
	ctx := context.Background()
	if g.Seats != [2]string{"alice", "alice"} {
		t.Fatalf("seats=%v", g.Seats)
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, Move(12, 28, nil), t0+1); !ok {
		t.Fatalf("white move rejected")
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, Move(52, 36, nil), t0+2); !ok {
		t.Fatalf("black move rejected")
	}
}

func TestWaitingJoinAndCancel(t *testing.T) {
	o, st, _, g := setup(t, KindChess, ModeVsFriend, "")
	ctx := context.Background()
	if g.Status != StatusWaiting {
		t.Fatalf("status=%s", g.Status)
	}
	if _, ok := o.Apply(ctx, "alice", g.ID, Move(12, 28, nil), t0+1); ok {
		t.Fatalf("waiting game accepted a move")
	}
	if _, err := o.Join(ctx, g.ID, "alice", "Alice", t0+2); err == nil {
		t.Fatalf("creator joined own game")
	}
	j, err := o.Join(ctx, g.ID, "bob", "Bob", t0+3)
	if err != nil || j.Status != StatusInProgress || j.Seats[1] != "bob" || j.Clock.TurnStart != t0+3 {
		t.Fatalf("join: %v %+v", err, j)
	}
	if err := o.Cancel(ctx, g.ID, "alice", t0+4); err == nil {
		t.Fatalf("cancelled a started game")
	}

	w, err := o.Create(ctx, CreateParams{Kind: KindPoker, Mode: ModeVsFriend, Creator: "alice", Now: t0})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := o.Cancel(ctx, w.ID, "bob", t0); err == nil {
		t.Fatalf("non-creator cancelled")
	}
	if err := o.Cancel(ctx, w.ID, "alice", t0); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := st.Load(ctx, w.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status=%s", got.Status)
	}
}

func TestRecordJSONKeepsPayloadKind(t *testing.T) {
	_, st, _, g := setup(t, KindPoker, ModeVsFriend, "bob")
	got, err := st.Load(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := got.Payload.Chess(); ok {
		t.Fatalf("poker payload reported chess")
	}
	var p Payload
	if err := json.Unmarshal([]byte(`{"kind":"checkers","state":{}}`), &p); err == nil {
		t.Fatalf("unknown kind decoded")
	}
	if err := json.Unmarshal([]byte(`{"kind":"chess"}`), &p); err == nil {
		t.Fatalf("missing state decoded")
	}
	got.Kind = KindChess
	if err := got.Validate(); err == nil {
		t.Fatalf("mismatched kind validated")
	}
}

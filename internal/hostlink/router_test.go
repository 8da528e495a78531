package hostlink

import (
	"context"
	"strings"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/lobby"
	"github.com/anikeaty08/linera-game/internal/msgcat"
	"github.com/anikeaty08/linera-game/internal/stats"
	"github.com/anikeaty08/linera-game/internal/store"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

const t0 = uint64(1_700_000_000_000_000)

type recordingEgress struct {
	mu      sync.Mutex
	reports []gamedto.OutcomeReport
	notices []gamedto.Notice
}

func (e *recordingEgress) Report(_ context.Context, r gamedto.OutcomeReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reports = append(e.reports, r)
	return nil
}

func (e *recordingEgress) Notify(_ context.Context, n gamedto.Notice) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, n)
	return nil
}

func newTestRouter(t *testing.T) (*Router, *recordingEgress) {
	t.Helper()
	orch := game.NewOrchestrator(store.NewMemoryStore())
	_, err := orch.Create(context.Background(), game.CreateParams{
		ID: "g1", Kind: game.KindChess, Mode: game.ModeVsFriend,
		Creator: "alice", CreatorName: "Alice", Opponent: "bob", OpponentName: "Bob", Now: t0,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	eg := &recordingEgress{}
	return NewRouter(orch, eg, cat), eg
}

func intp(v int) *int { return &v }

func TestRouteAppliesMove(t *testing.T) {
	r, _ := newTestRouter(t)
	rep := r.Route(context.Background(), gamedto.Envelope{
		RequestID: "r1", GameID: "g1", Actor: "alice", Timestamp: t0 + 1,
		Action: gamedto.ActionRequest{Type: gamedto.TypeMove, From: intp(12), To: intp(28)},
	})
	if !rep.Applied || rep.Outcome != "in_progress" || rep.Status != string(game.StatusInProgress) || rep.Winner != nil {
		t.Fatalf("report=%+v", rep)
	}
}

func TestRouteRejects(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	bad := r.Route(ctx, gamedto.Envelope{GameID: "g1", Actor: "alice", Action: gamedto.ActionRequest{Type: "fly"}})
	if bad.Applied || bad.RequestID == "" || bad.Outcome != "in_progress" || bad.Error != "" {
		t.Fatalf("bad action report=%+v", bad)
	}
	wrongTurn := r.Route(ctx, gamedto.Envelope{
		RequestID: "r2", GameID: "g1", Actor: "bob", Timestamp: t0 + 1,
		Action: gamedto.ActionRequest{Type: gamedto.TypeMove, From: intp(52), To: intp(36)},
	})
	if wrongTurn.Applied || wrongTurn.Status != "" || wrongTurn.Error != "" || wrongTurn.Outcome != "in_progress" {
		t.Fatalf("wrong turn report=%+v", wrongTurn)
	}
}

func TestHandleResignReportsAndAnnounces(t *testing.T) {
	r, eg := newTestRouter(t)
	r.Handle(context.Background(), gamedto.Envelope{
		RequestID: "r3", GameID: "g1", Actor: "bob", Timestamp: t0 + 5,
		Action: gamedto.ActionRequest{Type: gamedto.TypeResign},
	})
	if len(eg.reports) != 1 {
		t.Fatalf("reports=%d", len(eg.reports))
	}
	rep := eg.reports[0]
	if !rep.Applied || rep.Outcome != "winner" || rep.Winner == nil || *rep.Winner != 0 || rep.Status != string(game.StatusCompleted) {
		t.Fatalf("report=%+v", rep)
	}
	if len(eg.notices) != 1 || eg.notices[0].Text != "g1 (chess): Alice wins." || eg.notices[0].At != t0+5 {
		t.Fatalf("notices=%+v", eg.notices)
	}
}

func newCommandRouter(t *testing.T) (*Router, *recordingEgress) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	orch := game.NewOrchestrator(store.NewMemoryStore())
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	eg := &recordingEgress{}
	r := NewRouter(orch, eg, cat,
		WithLobbies(lobby.NewManager(rdb, orch)),
		WithStats(stats.NewService(stats.NewMemoryRepository())),
	)
	return r, eg
}

func cmdEnv(id, gameID, actor string, at uint64, cmd gamedto.Command) gamedto.Envelope {
	return gamedto.Envelope{RequestID: id, GameID: gameID, Actor: actor, Timestamp: at, Command: &cmd}
}

func TestCommandCreateGame(t *testing.T) {
	r, _ := newCommandRouter(t)
	rep := r.Route(context.Background(), cmdEnv("c1", "g2", "alice", t0, gamedto.Command{
		Type: gamedto.CmdCreateGame, Kind: "poker", Mode: "vs_friend", Name: "Alice", Opponent: "bob", OpponentName: "Bob",
	}))
	if !rep.Applied || rep.Command != gamedto.CmdCreateGame || rep.GameID != "g2" || rep.Status != string(game.StatusInProgress) {
		t.Fatalf("report=%+v", rep)
	}
	if rep.Game == nil || rep.Game.Seats != [2]string{"alice", "bob"} || rep.Game.Kind != "poker" || rep.Outcome != "in_progress" {
		t.Fatalf("game=%+v", rep.Game)
	}
	bad := r.Route(context.Background(), cmdEnv("c2", "", "alice", t0, gamedto.Command{Type: gamedto.CmdCreateGame, Kind: "go", Mode: "vs_bot"}))
	if bad.Applied || bad.Error == "" || bad.Game != nil {
		t.Fatalf("bad kind report=%+v", bad)
	}
}

func TestCommandJoinAndListGames(t *testing.T) {
	r, _ := newCommandRouter(t)
	ctx := context.Background()
	created := r.Route(ctx, cmdEnv("c1", "g2", "alice", t0, gamedto.Command{Type: gamedto.CmdCreateGame, Kind: "chess", Mode: "vs_friend", Name: "Alice"}))
	if !created.Applied || created.Status != string(game.StatusWaiting) {
		t.Fatalf("create=%+v", created)
	}
	joined := r.Route(ctx, cmdEnv("c2", "g2", "bob", t0+5, gamedto.Command{Type: gamedto.CmdJoinGame, Name: "Bob"}))
	if !joined.Applied || joined.Status != string(game.StatusInProgress) || joined.Game.Names[1] != "Bob" {
		t.Fatalf("join=%+v", joined)
	}
	again := r.Route(ctx, cmdEnv("c3", "g2", "carol", t0+6, gamedto.Command{Type: gamedto.CmdJoinGame}))
	if again.Applied || again.Error != game.ErrNotWaiting.Error() {
		t.Fatalf("second join=%+v", again)
	}
	list := r.Route(ctx, cmdEnv("c4", "", "bob", t0+7, gamedto.Command{Type: gamedto.CmdListGames}))
	if !list.Applied || len(list.Games) != 1 || list.Games[0].ID != "g2" {
		t.Fatalf("list=%+v", list)
	}
}

func TestCommandCancelGame(t *testing.T) {
	r, eg := newCommandRouter(t)
	ctx := context.Background()
	r.Route(ctx, cmdEnv("c1", "g3", "alice", t0, gamedto.Command{Type: gamedto.CmdCreateGame, Kind: "chess", Mode: "vs_friend"}))
	denied := r.Route(ctx, cmdEnv("c2", "g3", "bob", t0+1, gamedto.Command{Type: gamedto.CmdCancelGame}))
	if denied.Applied || denied.Error != game.ErrNotCreator.Error() {
		t.Fatalf("non-creator cancel=%+v", denied)
	}
	rep := r.Route(ctx, cmdEnv("c3", "g3", "alice", t0+2, gamedto.Command{Type: gamedto.CmdCancelGame}))
	if !rep.Applied || rep.Status != string(game.StatusCancelled) {
		t.Fatalf("cancel=%+v", rep)
	}
	if len(eg.notices) != 1 || eg.notices[0].Text != "g3 (chess) was cancelled." {
		t.Fatalf("notices=%+v", eg.notices)
	}
}

func TestCommandCreateAndListLobbies(t *testing.T) {
	r, _ := newCommandRouter(t)
	ctx := context.Background()
	rep := r.Route(ctx, cmdEnv("l1", "", "alice", t0, gamedto.Command{
		Type: gamedto.CmdCreateLobby, Kind: "chess", Name: "Alice", Public: true, TimeControlSec: 60,
	}))
	if !rep.Applied || rep.Lobby == nil || rep.Lobby.Status != string(lobby.StatusOpen) || rep.Lobby.HasPassword {
		t.Fatalf("create lobby=%+v", rep)
	}
	list := r.Route(ctx, cmdEnv("l2", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdListLobbies}))
	if !list.Applied || len(list.Lobbies) != 1 || list.Lobbies[0].ID != rep.Lobby.ID {
		t.Fatalf("list=%+v", list)
	}
	bad := r.Route(ctx, cmdEnv("l3", "", "alice", t0, gamedto.Command{Type: gamedto.CmdCreateLobby, Kind: "chess"}))
	if bad.Applied || bad.Error != lobby.ErrInvalidArgs.Error() {
		t.Fatalf("no time control=%+v", bad)
	}
}

func TestCommandJoinLobbyStartsGame(t *testing.T) {
	r, eg := newCommandRouter(t)
	ctx := context.Background()
	created := r.Route(ctx, cmdEnv("l1", "", "alice", t0, gamedto.Command{
		Type: gamedto.CmdCreateLobby, Kind: "poker", Name: "Alice", Password: strp("pw"), TimeControlSec: 120,
	}))
	id := created.Lobby.ID
	if !created.Lobby.HasPassword {
		t.Fatalf("password flag missing")
	}
	missing := r.Route(ctx, cmdEnv("l2", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdJoinLobby}))
	if missing.Applied || missing.Error == "" {
		t.Fatalf("join without id=%+v", missing)
	}
	wrong := r.Route(ctx, cmdEnv("l3", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdJoinLobby, LobbyID: id, Password: strp("nope")}))
	if wrong.Applied || wrong.Error != lobby.ErrBadPassword.Error() {
		t.Fatalf("wrong password=%+v", wrong)
	}
	rep := r.Route(ctx, cmdEnv("l4", "", "bob", t0+2, gamedto.Command{Type: gamedto.CmdJoinLobby, LobbyID: id, Name: "Bob", Password: strp("pw")}))
	if !rep.Applied || rep.Lobby.Status != string(lobby.StatusStarted) || rep.GameID != "game_"+id {
		t.Fatalf("join=%+v", rep)
	}
	if rep.Game == nil || rep.Game.Kind != "poker" || rep.Game.TimeLeft[0] != 120*clock.Second {
		t.Fatalf("game=%+v", rep.Game)
	}
	want := "Lobby " + id + " is full. Game game_" + id + " has started."
	if len(eg.notices) != 1 || eg.notices[0].Text != want {
		t.Fatalf("notices=%+v", eg.notices)
	}
}

func TestCommandCancelLobby(t *testing.T) {
	r, eg := newCommandRouter(t)
	ctx := context.Background()
	created := r.Route(ctx, cmdEnv("l1", "", "alice", t0, gamedto.Command{Type: gamedto.CmdCreateLobby, Kind: "chess", Public: true, TimeControlSec: 60}))
	id := created.Lobby.ID
	denied := r.Route(ctx, cmdEnv("l2", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdCancelLobby, LobbyID: id}))
	if denied.Applied || denied.Error != lobby.ErrNotCreator.Error() {
		t.Fatalf("non-creator cancel=%+v", denied)
	}
	rep := r.Route(ctx, cmdEnv("l3", "", "alice", t0+2, gamedto.Command{Type: gamedto.CmdCancelLobby, LobbyID: id}))
	if !rep.Applied || rep.Lobby.Status != string(lobby.StatusCancelled) {
		t.Fatalf("cancel=%+v", rep)
	}
	if len(eg.notices) != 1 || eg.notices[0].Text != "Lobby "+id+" was cancelled by its host." {
		t.Fatalf("notices=%+v", eg.notices)
	}
	list := r.Route(ctx, cmdEnv("l4", "", "bob", t0+3, gamedto.Command{Type: gamedto.CmdListLobbies}))
	if len(list.Lobbies) != 0 {
		t.Fatalf("cancelled lobby listed: %+v", list.Lobbies)
	}
}

func TestCommandRecordBotGame(t *testing.T) {
	r, _ := newCommandRouter(t)
	ctx := context.Background()
	noResult := r.Route(ctx, cmdEnv("s1", "", "alice", t0, gamedto.Command{Type: gamedto.CmdRecordBotGame, Kind: "blackjack"}))
	if noResult.Applied || noResult.Error == "" {
		t.Fatalf("missing won=%+v", noResult)
	}
	rep := r.Route(ctx, cmdEnv("s2", "", "alice", t0, gamedto.Command{Type: gamedto.CmdRecordBotGame, Kind: "blackjack", Name: "Alice", Won: boolp(true)}))
	if !rep.Applied || rep.Stats == nil || rep.Stats.Wins != 1 || rep.Stats.TotalGames != 1 || rep.Stats.WinRate != 100 {
		t.Fatalf("record=%+v", rep.Stats)
	}
}

func TestCommandStatsAndLeaderboard(t *testing.T) {
	r, _ := newCommandRouter(t)
	ctx := context.Background()
	r.Route(ctx, cmdEnv("s1", "", "alice", t0, gamedto.Command{Type: gamedto.CmdRecordBotGame, Kind: "poker", Name: "Alice", Won: boolp(true)}))
	r.Route(ctx, cmdEnv("s2", "", "bob", t0, gamedto.Command{Type: gamedto.CmdRecordBotGame, Kind: "poker", Name: "Bob", Won: boolp(false)}))

	own := r.Route(ctx, cmdEnv("s3", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdPlayerStats}))
	if !own.Applied || own.Stats.Player != "bob" || own.Stats.Losses != 1 || own.Stats.CurrentStreak != -1 {
		t.Fatalf("own stats=%+v", own.Stats)
	}
	other := r.Route(ctx, cmdEnv("s4", "", "bob", t0+1, gamedto.Command{Type: gamedto.CmdPlayerStats, Player: "alice"}))
	if other.Stats.Player != "alice" || other.Stats.Wins != 1 {
		t.Fatalf("alice stats=%+v", other.Stats)
	}

	board := r.Route(ctx, cmdEnv("s5", "", "carol", t0+2, gamedto.Command{Type: gamedto.CmdLeaderboard}))
	if !board.Applied || len(board.Leaderboard) != 2 {
		t.Fatalf("leaderboard=%+v", board.Leaderboard)
	}
	if board.Leaderboard[0].Rank != 1 || board.Leaderboard[0].Stats.Player != "alice" || board.Leaderboard[1].Stats.Player != "bob" {
		t.Fatalf("order=%+v", board.Leaderboard)
	}
	top := r.Route(ctx, cmdEnv("s6", "", "carol", t0+2, gamedto.Command{Type: gamedto.CmdLeaderboard, Limit: 1}))
	if len(top.Leaderboard) != 1 {
		t.Fatalf("limit ignored: %+v", top.Leaderboard)
	}
}

func TestCommandUnsupportedAndUnknown(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	for _, typ := range []string{gamedto.CmdCreateLobby, gamedto.CmdJoinLobby, gamedto.CmdCancelLobby, gamedto.CmdListLobbies,
		gamedto.CmdRecordBotGame, gamedto.CmdPlayerStats, gamedto.CmdLeaderboard} {
		rep := r.Route(ctx, cmdEnv("u1", "", "alice", t0, gamedto.Command{Type: typ}))
		if rep.Applied || rep.Error != ErrUnsupported.Error() {
			t.Fatalf("%s report=%+v", typ, rep)
		}
	}
	rep := r.Route(ctx, cmdEnv("u2", "", "alice", t0, gamedto.Command{Type: "teleport"}))
	if rep.Applied || !strings.HasPrefix(rep.Error, ErrUnknownCommand.Error()) {
		t.Fatalf("unknown report=%+v", rep)
	}
}

func TestHandleCommandReports(t *testing.T) {
	r, eg := newCommandRouter(t)
	r.Handle(context.Background(), cmdEnv("h1", "", "alice", t0, gamedto.Command{Type: gamedto.CmdListGames}))
	if len(eg.reports) != 1 || eg.reports[0].RequestID != "h1" || !eg.reports[0].Applied || eg.reports[0].Command != gamedto.CmdListGames {
		t.Fatalf("reports=%+v", eg.reports)
	}
}

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }

package gamedto

// Command is a request that does not act on a running game: creating,
// joining and listing games or lobbies, and reading or crediting stats.
// Type selects which of the remaining fields apply.
type Command struct {
	Type           string  `json:"type"`
	Kind           string  `json:"kind,omitempty"`
	Mode           string  `json:"mode,omitempty"`
	Name           string  `json:"name,omitempty"`
	Opponent       string  `json:"opponent,omitempty"`
	OpponentName   string  `json:"opponent_name,omitempty"`
	LobbyID        string  `json:"lobby_id,omitempty"`
	Public         bool    `json:"public,omitempty"`
	Password       *string `json:"password,omitempty"`
	TimeControlSec uint64  `json:"time_control_sec,omitempty"`
	Won            *bool   `json:"won,omitempty"`
	Player         string  `json:"player,omitempty"`
	Limit          int     `json:"limit,omitempty"`
}

const (
	CmdCreateGame    = "create_game"
	CmdJoinGame      = "join_game"
	CmdCancelGame    = "cancel_game"
	CmdListGames     = "list_games"
	CmdCreateLobby   = "create_lobby"
	CmdJoinLobby     = "join_lobby"
	CmdCancelLobby   = "cancel_lobby"
	CmdListLobbies   = "list_lobbies"
	CmdRecordBotGame = "record_bot_game"
	CmdLeaderboard   = "leaderboard"
	CmdPlayerStats   = "player_stats"
)

type GameView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Seats     [2]string `json:"seats"`
	Names     [2]string `json:"names"`
	Winner    *int      `json:"winner,omitempty"`
	TimeLeft  [2]uint64 `json:"time_left"`
	CreatedAt uint64    `json:"created_at"`
	UpdatedAt uint64    `json:"updated_at"`
}

type LobbyView struct {
	ID             string   `json:"id"`
	Creator        string   `json:"creator"`
	CreatorName    string   `json:"creator_name,omitempty"`
	Kind           string   `json:"kind"`
	Status         string   `json:"status"`
	Public         bool     `json:"public"`
	HasPassword    bool     `json:"has_password"`
	TimeControlSec uint64   `json:"time_control_sec"`
	CreatedAt      uint64   `json:"created_at"`
	ExpiresAt      uint64   `json:"expires_at"`
	Players        []string `json:"players"`
	GameID         string   `json:"game_id,omitempty"`
}

type StatsView struct {
	Player        string  `json:"player"`
	Name          string  `json:"name,omitempty"`
	TotalGames    uint32  `json:"total_games"`
	Wins          uint32  `json:"wins"`
	Losses        uint32  `json:"losses"`
	Draws         uint32  `json:"draws"`
	WinRate       float64 `json:"win_rate"`
	CurrentStreak int32   `json:"current_streak"`
	BestStreak    uint32  `json:"best_streak"`
	ChessRating   int     `json:"chess_rating"`
}

type LeaderboardRow struct {
	Rank  int       `json:"rank"`
	Stats StatsView `json:"stats"`
}

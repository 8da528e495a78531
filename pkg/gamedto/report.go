package gamedto

// OutcomeReport answers one envelope. Command replies leave Outcome empty
// unless they touched a game, and fill Error when they failed.
type OutcomeReport struct {
	RequestID   string           `json:"request_id"`
	GameID      string           `json:"game_id"`
	Outcome     string           `json:"outcome"`
	Winner      *int             `json:"winner,omitempty"`
	Applied     bool             `json:"applied"`
	Status      string           `json:"status,omitempty"`
	At          uint64           `json:"at"`
	Command     string           `json:"command,omitempty"`
	Error       string           `json:"error,omitempty"`
	Game        *GameView        `json:"game,omitempty"`
	Games       []GameView       `json:"games,omitempty"`
	Lobby       *LobbyView       `json:"lobby,omitempty"`
	Lobbies     []LobbyView      `json:"lobbies,omitempty"`
	Stats       *StatsView       `json:"stats,omitempty"`
	Leaderboard []LeaderboardRow `json:"leaderboard,omitempty"`
}

type Notice struct {
	GameID string `json:"game_id"`
	Text   string `json:"text"`
	At     uint64 `json:"at"`
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
}

// Frame is what the node writes back over the WebSocket feed.
type Frame struct {
	Type   string         `json:"type"` // "outcome" or "notice"
	Report *OutcomeReport `json:"report,omitempty"`
	Notice *Notice        `json:"notice,omitempty"`
}

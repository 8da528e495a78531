package gamedto

// ActionRequest is the engine-agnostic wire form of a player action.
// Type selects which of the remaining fields apply.
type ActionRequest struct {
	Type      string  `json:"type"`
	From      *int    `json:"from,omitempty"`
	To        *int    `json:"to,omitempty"`
	Promotion string  `json:"promotion,omitempty"`
	Action    string  `json:"action,omitempty"`
	Amount    *uint64 `json:"amount,omitempty"`
}

const (
	TypeMove         = "move"
	TypePoker        = "poker"
	TypeBlackjack    = "blackjack"
	TypeResign       = "resign"
	TypeOfferDraw    = "offer_draw"
	TypeAcceptDraw   = "accept_draw"
	TypeClaimTimeout = "claim_timeout"
)

// Envelope is one authenticated request delivered by the host.
// Timestamp is the host block time in microseconds. When Command is set
// the envelope carries a command and Action is ignored.
type Envelope struct {
	RequestID string        `json:"request_id"`
	GameID    string        `json:"game_id"`
	Actor     string        `json:"actor"`
	Timestamp uint64        `json:"timestamp"`
	Action    ActionRequest `json:"action"`
	Command   *Command      `json:"command,omitempty"`
}

package chess

import (
	"errors"
	"strings"

	"github.com/anikeaty08/linera-game/internal/domain"
)

var (
	ErrInvalidSquare    = errors.New("invalid square")
	ErrNoPiece          = errors.New("no piece at source")
	ErrNotYourPiece     = errors.New("not your piece")
	ErrOwnCapture       = errors.New("cannot capture own piece")
	ErrInvalidPromotion = errors.New("invalid promotion piece")
)

type PieceKind uint8

const (
	Pawn PieceKind = iota + 1
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k PieceKind) Letter() string {
	switch k {
	case Knight:
		return "N"
	case Bishop:
		return "B"
	case Rook:
		return "R"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return ""
	}
}

// ParsePieceKind accepts a letter or an English name, case-insensitive.
func ParsePieceKind(s string) (PieceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p", "pawn":
		return Pawn, true
	case "n", "knight":
		return Knight, true
	case "b", "bishop":
		return Bishop, true
	case "r", "rook":
		return Rook, true
	case "q", "queen":
		return Queen, true
	case "k", "king":
		return King, true
	}
	return 0, false
}

type Piece struct {
	Kind     PieceKind   `json:"kind"`
	Owner    domain.Seat `json:"owner"`
	HasMoved bool        `json:"has_moved"`
}

type CastlingRights struct {
	WhiteKingside  bool `json:"white_kingside"`
	WhiteQueenside bool `json:"white_queenside"`
	BlackKingside  bool `json:"black_kingside"`
	BlackQueenside bool `json:"black_queenside"`
}

type MoveRecord struct {
	From        uint8      `json:"from"`
	To          uint8      `json:"to"`
	Piece       PieceKind  `json:"piece"`
	Captured    *PieceKind `json:"captured,omitempty"`
	Promotion   *PieceKind `json:"promotion,omitempty"`
	IsCastle    bool       `json:"is_castle"`
	IsEnPassant bool       `json:"is_en_passant"`
	Notation    string     `json:"notation"`
	Timestamp   uint64     `json:"timestamp"`
}

// Board is the full chess position plus history. Slot = rank*8 + file,
// slot 0 is a1. Seat one plays white.
type Board struct {
	Squares       [64]*Piece     `json:"squares"`
	Active        domain.Seat    `json:"active"`
	Castling      CastlingRights `json:"castling"`
	EnPassant     *uint8         `json:"en_passant,omitempty"`
	Halfmove      uint32         `json:"halfmove"`
	Fullmove      uint32         `json:"fullmove"`
	History       []MoveRecord   `json:"history"`
	IsCheck       bool           `json:"is_check"`
	IsCheckmate   bool           `json:"is_checkmate"`
	IsStalemate   bool           `json:"is_stalemate"`
	CapturedWhite []PieceKind    `json:"captured_white"`
	CapturedBlack []PieceKind    `json:"captured_black"`
}

var backRank = [8]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position with seat one to move.
func NewBoard() *Board {
	b := &Board{
		Active:        domain.SeatOne,
		Castling:      CastlingRights{true, true, true, true},
		Fullmove:      1,
		History:       []MoveRecord{},
		CapturedWhite: []PieceKind{},
		CapturedBlack: []PieceKind{},
	}
	for f := 0; f < 8; f++ {
		b.Squares[f] = &Piece{Kind: backRank[f], Owner: domain.SeatOne}
		b.Squares[8+f] = &Piece{Kind: Pawn, Owner: domain.SeatOne}
		b.Squares[48+f] = &Piece{Kind: Pawn, Owner: domain.SeatTwo}
		b.Squares[56+f] = &Piece{Kind: backRank[f], Owner: domain.SeatTwo}
	}
	return b
}

func (b *Board) ActiveSeat() domain.Seat { return b.Active }

// castle rook relocation keyed by king destination
var castleRook = map[int][2]int{
	6:  {7, 5},
	2:  {0, 3},
	62: {63, 61},
	58: {56, 59},
}

func isCastle(p Piece, from, to int) bool {
	if p.Kind != King {
		return false
	}
	return (from == 4 && (to == 6 || to == 2)) || (from == 60 && (to == 62 || to == 58))
}

// ApplyMove moves the active seat's piece from one slot to another.
// Only ownership and the special-move rules are enforced; piece movement
// patterns are trusted. A returned error leaves the board untouched.
func (b *Board) ApplyMove(from, to int, promotion *PieceKind, ts uint64) (domain.Outcome, error) {
	if from < 0 || from >= 64 || to < 0 || to >= 64 {
		return domain.InProgress(), ErrInvalidSquare
	}
	src := b.Squares[from]
	if src == nil {
		return domain.InProgress(), ErrNoPiece
	}
	if src.Owner != b.Active {
		return domain.InProgress(), ErrNotYourPiece
	}
	dst := b.Squares[to]
	if dst != nil && dst.Owner == src.Owner {
		return domain.InProgress(), ErrOwnCapture
	}
	piece := *src
	promoting := piece.Kind == Pawn && (to/8 == 0 || to/8 == 7)
	promoteTo := Queen
	if promoting && promotion != nil {
		switch *promotion {
		case Knight, Bishop, Rook, Queen:
			promoteTo = *promotion
		default:
			return domain.InProgress(), ErrInvalidPromotion
		}
	}

	var captured *PieceKind
	if dst != nil {
		k := dst.Kind
		captured = &k
		b.recordCapture(k)
	}

	castle := isCastle(piece, from, to)
	if castle {
		r := castleRook[to]
		if rook := b.Squares[r[0]]; rook != nil {
			moved := *rook
			moved.HasMoved = true
			b.Squares[r[1]] = &moved
			b.Squares[r[0]] = nil
		}
	}

	enPassant := piece.Kind == Pawn && b.EnPassant != nil && int(*b.EnPassant) == to &&
		from%8 != to%8 && dst == nil
	if enPassant {
		victim := to - 8
		if b.Active == domain.SeatTwo {
			victim = to + 8
		}
		b.Squares[victim] = nil
		b.recordCapture(Pawn)
	}

	b.EnPassant = nil
	if piece.Kind == Pawn && abs(to-from) == 16 {
		ep := uint8((from + to) / 2)
		b.EnPassant = &ep
	}

	placed := piece
	placed.HasMoved = true
	var promoted *PieceKind
	if promoting {
		placed.Kind = promoteTo
		pk := promoteTo
		promoted = &pk
	}
	b.Squares[to] = &placed
	b.Squares[from] = nil

	b.updateCastlingRights(piece, from, to)

	b.History = append(b.History, MoveRecord{
		From:        uint8(from),
		To:          uint8(to),
		Piece:       piece.Kind,
		Captured:    captured,
		Promotion:   promoted,
		IsCastle:    castle,
		IsEnPassant: enPassant,
		Notation:    notation(from, to, piece.Kind, captured != nil || enPassant, promoted, castle),
		Timestamp:   ts,
	})

	if piece.Kind == Pawn || captured != nil {
		b.Halfmove = 0
	} else {
		b.Halfmove++
	}
	if b.Active == domain.SeatTwo {
		b.Fullmove++
	}
	b.Active = b.Active.Other()
	b.refreshCheck()

	switch {
	case b.IsCheckmate:
		return domain.WinnerIs(b.Active.Other()), nil
	case b.IsStalemate || b.Halfmove >= 100:
		return domain.Draw(), nil
	default:
		return domain.InProgress(), nil
	}
}

func (b *Board) recordCapture(k PieceKind) {
	if b.Active == domain.SeatOne {
		b.CapturedBlack = append(b.CapturedBlack, k)
	} else {
		b.CapturedWhite = append(b.CapturedWhite, k)
	}
}

func (b *Board) updateCastlingRights(p Piece, from, to int) {
	if p.Kind == King {
		if p.Owner == domain.SeatOne {
			b.Castling.WhiteKingside, b.Castling.WhiteQueenside = false, false
		} else {
			b.Castling.BlackKingside, b.Castling.BlackQueenside = false, false
		}
	}
	// a rook home slot that is left or captured on loses its right
	for _, sq := range [2]int{from, to} {
		switch sq {
		case 0:
			b.Castling.WhiteQueenside = false
		case 7:
			b.Castling.WhiteKingside = false
		case 56:
			b.Castling.BlackQueenside = false
		case 63:
			b.Castling.BlackKingside = false
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package chess

import (
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/anikeaty08/linera-game/internal/domain"
)

var whitePieces = map[PieceKind]nchess.Piece{
	Pawn: nchess.WhitePawn, Knight: nchess.WhiteKnight, Bishop: nchess.WhiteBishop,
	Rook: nchess.WhiteRook, Queen: nchess.WhiteQueen, King: nchess.WhiteKing,
}

var blackPieces = map[PieceKind]nchess.Piece{
	Pawn: nchess.BlackPawn, Knight: nchess.BlackKnight, Bishop: nchess.BlackBishop,
	Rook: nchess.BlackRook, Queen: nchess.BlackQueen, King: nchess.BlackKing,
}

// Placement returns the piece-placement field of the position's FEN.
func (b *Board) Placement() string {
	m := make(map[nchess.Square]nchess.Piece)
	for i, p := range b.Squares {
		if p == nil {
			continue
		}
		sq := nchess.NewSquare(nchess.File(i%8), nchess.Rank(i/8))
		if p.Owner == domain.SeatOne {
			m[sq] = whitePieces[p.Kind]
		} else {
			m[sq] = blackPieces[p.Kind]
		}
	}
	return nchess.NewBoard(m).String()
}

// FEN renders the position in Forsyth-Edwards notation.
func (b *Board) FEN() string {
	active := "w"
	if b.Active == domain.SeatTwo {
		active = "b"
	}
	var castling strings.Builder
	if b.Castling.WhiteKingside {
		castling.WriteByte('K')
	}
	if b.Castling.WhiteQueenside {
		castling.WriteByte('Q')
	}
	if b.Castling.BlackKingside {
		castling.WriteByte('k')
	}
	if b.Castling.BlackQueenside {
		castling.WriteByte('q')
	}
	c := castling.String()
	if c == "" {
		c = "-"
	}
	ep := "-"
	if b.EnPassant != nil {
		ep = SquareName(int(*b.EnPassant))
	}
	return strings.Join([]string{
		b.Placement(), active, c, ep,
		strconv.FormatUint(uint64(b.Halfmove), 10),
		strconv.FormatUint(uint64(b.Fullmove), 10),
	}, " ")
}

package chess

import "github.com/anikeaty08/linera-game/internal/domain"

func (b *Board) refreshCheck() {
	king, ok := b.kingSquare(b.Active)
	if !ok {
		return
	}
	b.IsCheck = b.attacked(king, b.Active.Other())
}

func (b *Board) kingSquare(s domain.Seat) (int, bool) {
	for i, p := range b.Squares {
		if p != nil && p.Kind == King && p.Owner == s {
			return i, true
		}
	}
	return 0, false
}

func (b *Board) attacked(sq int, by domain.Seat) bool {
	for i, p := range b.Squares {
		if p != nil && p.Owner == by && reaches(*p, i, sq) {
			return true
		}
	}
	return false
}

// reaches is purely geometric: sliding pieces are not blocked.
func reaches(p Piece, from, to int) bool {
	dr := to/8 - from/8
	rowDiff, colDiff := abs(dr), abs(to%8-from%8)
	moved := rowDiff > 0 || colDiff > 0
	switch p.Kind {
	case Pawn:
		dir := 1
		if p.Owner == domain.SeatTwo {
			dir = -1
		}
		return colDiff == 1 && dr == dir
	case Knight:
		return (rowDiff == 2 && colDiff == 1) || (rowDiff == 1 && colDiff == 2)
	case Bishop:
		return moved && rowDiff == colDiff
	case Rook:
		return moved && (rowDiff == 0 || colDiff == 0)
	case Queen:
		return moved && (rowDiff == colDiff || rowDiff == 0 || colDiff == 0)
	case King:
		return moved && rowDiff <= 1 && colDiff <= 1
	}
	return false
}

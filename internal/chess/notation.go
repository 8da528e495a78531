package chess

import "strconv"

const files = "abcdefgh"

func SquareName(sq int) string {
	return string(files[sq%8]) + strconv.Itoa(sq/8+1)
}

func notation(from, to int, kind PieceKind, capture bool, promoted *PieceKind, castle bool) string {
	if castle {
		if to%8 > from%8 {
			return "O-O"
		}
		return "O-O-O"
	}
	s := kind.Letter()
	if capture {
		if kind == Pawn {
			s += string(files[from%8])
		}
		s += "x"
	}
	s += SquareName(to)
	if promoted != nil {
		s += "=" + promoted.Letter()
	}
	return s
}

// Package board holds the 3x3 tic-tac-toe grid and its evaluation.
package board

import "strings"

const Size = 9

type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other symbol. Empty maps to Empty.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Lines lists the winning triples in scan order: rows, columns, diagonals.
var Lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Board [Size]Cell

type WinResult struct {
	Symbol Cell
	Line   [3]int
}

// TurnSymbol is the symbol due to move for the given parity.
func TurnSymbol(isXNext bool) Cell {
	if isXNext {
		return X
	}
	return O
}

// Coords maps an index to its grid position.
func Coords(i int) (col, row int) {
	return i % 3, i / 3
}

func ValidPosition(i int) bool {
	return i >= 0 && i < Size
}

// Evaluate returns the first complete non-empty line in Lines order.
func Evaluate(b Board) (WinResult, bool) {
	for _, line := range Lines {
		a := b[line[0]]
		if a != Empty && a == b[line[1]] && a == b[line[2]] {
			return WinResult{Symbol: a, Line: line}, true
		}
	}
	return WinResult{}, false
}

// IsDraw reports a full board with no winner.
func IsDraw(b Board) bool {
	if _, ok := Evaluate(b); ok {
		return false
	}
	return b.Full()
}

func (b Board) Count() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

func (b Board) Full() bool {
	return b.Count() == Size
}

// String renders the board as three rows, '.' for empty cells.
func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if c == Empty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(c.String())
		}
		if i%3 == 2 && i != Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

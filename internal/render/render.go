// Package render draws a tic-tac-toe board for a human player.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
)

// Renderer presents cells and reports clicks through onCellClick. It never
// mutates game state.
type Renderer interface {
	Render(cells board.Board, onCellClick func(int))
}

const (
	colorX    = "#818cf8"
	colorO    = "#f472b6"
	colorWin  = "#facc15"
	colorHint = "#6b7280"
	colorErr  = "#fb7185"
)

// Terminal draws the grid as text. Empty cells show their index so the
// player knows what to type.
type Terminal struct {
	out     io.Writer
	profile termenv.Profile

	mu      sync.Mutex
	onClick func(int)
}

var _ Renderer = (*Terminal)(nil)

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, profile: termenv.ColorProfile()}
}

// NewPlainTerminal never emits color sequences.
func NewPlainTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, profile: termenv.Ascii}
}

func (t *Terminal) Render(cells board.Board, onCellClick func(int)) {
	t.mu.Lock()
	t.onClick = onCellClick
	t.mu.Unlock()

	fmt.Fprint(t.out, t.grid(cells, nil))
}

// Click forwards i to the handler from the last Render call.
func (t *Terminal) Click(i int) bool {
	t.mu.Lock()
	h := t.onClick
	t.mu.Unlock()

	if h == nil {
		return false
	}
	h(i)
	return true
}

// RenderSnapshot draws the board with the winning line highlighted,
// followed by status lines.
func (t *Terminal) RenderSnapshot(snap session.Snapshot, onCellClick func(int)) {
	t.mu.Lock()
	t.onClick = onCellClick
	t.mu.Unlock()

	var line *[3]int
	if snap.HasWinner {
		line = &snap.Winner.Line
	}

	var b strings.Builder
	b.WriteString(t.grid(snap.Board, line))
	b.WriteString(t.status(snap))
	fmt.Fprint(t.out, b.String())
}

func (t *Terminal) grid(cells board.Board, win *[3]int) string {
	highlight := make(map[int]bool, 3)
	if win != nil {
		for _, i := range win {
			highlight[i] = true
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			i := row*3 + col
			b.WriteString(" ")
			b.WriteString(t.cell(cells[i], i, highlight[i]))
			if col < 2 {
				b.WriteString(" |")
			}
		}
		b.WriteString("\n")
		if row < 2 {
			b.WriteString("---+---+---\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (t *Terminal) cell(c board.Cell, i int, highlight bool) string {
	switch {
	case c == board.Empty:
		return t.profile.String(fmt.Sprint(i)).Foreground(t.profile.Color(colorHint)).String()
	case highlight:
		return t.profile.String(c.String()).Foreground(t.profile.Color(colorWin)).Bold().String()
	case c == board.X:
		return t.profile.String(c.String()).Foreground(t.profile.Color(colorX)).String()
	default:
		return t.profile.String(c.String()).Foreground(t.profile.Color(colorO)).String()
	}
}

func (t *Terminal) status(snap session.Snapshot) string {
	var b strings.Builder

	if snap.LocalID != "" {
		fmt.Fprintf(&b, "Your id: %s\n", snap.LocalID)
	}
	if snap.Status != transport.Connected {
		fmt.Fprintf(&b, "Connection: %s\n", snap.Status)
	}
	if snap.Err != nil {
		b.WriteString(t.profile.String("Error: "+snap.Err.Error()).Foreground(t.profile.Color(colorErr)).String())
		b.WriteString("\n")
	}

	switch snap.State {
	case session.Won:
		if snap.MySymbol == snap.Winner.Symbol {
			fmt.Fprintf(&b, "%s wins! You won.\n", snap.Winner.Symbol)
		} else {
			fmt.Fprintf(&b, "%s wins!\n", snap.Winner.Symbol)
		}
	case session.Draw:
		b.WriteString("Draw.\n")
	case session.Active, session.AwaitingReady:
		if snap.IsMyTurn {
			fmt.Fprintf(&b, "Your turn (%s)\n", snap.MySymbol)
		} else {
			fmt.Fprintf(&b, "Waiting for %s\n", board.TurnSymbol(snap.IsXNext))
		}
	case session.AwaitingConnection:
		b.WriteString("Waiting for opponent\n")
	}

	b.WriteString(t.profile.String("[0-8] play  [r] reset  [c id] connect  [d] disconnect  [q] quit").Foreground(t.profile.Color(colorHint)).String())
	b.WriteString("\n")
	return b.String()
}

package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal_RenderGrid(t *testing.T) {
	var out bytes.Buffer
	term := NewPlainTerminal(&out)

	cells := board.Board{}
	cells[0] = board.X
	cells[4] = board.O
	term.Render(cells, nil)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "X | 1 | 2", strings.TrimSpace(lines[0]))
	assert.Equal(t, "3 | O | 5", strings.TrimSpace(lines[2]))
	assert.Equal(t, "6 | 7 | 8", strings.TrimSpace(lines[4]))
}

func TestTerminal_Click(t *testing.T) {
	term := NewPlainTerminal(&bytes.Buffer{})
	assert.False(t, term.Click(3), "no handler before the first render")

	var clicked []int
	term.Render(board.Board{}, func(i int) { clicked = append(clicked, i) })

	assert.True(t, term.Click(3))
	assert.True(t, term.Click(7))
	assert.Equal(t, []int{3, 7}, clicked)
}

func TestTerminal_RenderSnapshot(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want []string
	}{
		{
			name: "waiting",
			snap: session.Snapshot{LocalID: "ab12cd34", Status: transport.Disconnected, State: session.AwaitingConnection},
			want: []string{"Your id: ab12cd34", "Connection: disconnected", "Waiting for opponent"},
		},
		{
			name: "my turn",
			snap: session.Snapshot{Status: transport.Connected, State: session.Active, MySymbol: board.X, IsXNext: true, IsMyTurn: true},
			want: []string{"Your turn (X)"},
		},
		{
			name: "their turn",
			snap: session.Snapshot{Status: transport.Connected, State: session.Active, MySymbol: board.X, IsXNext: false},
			want: []string{"Waiting for O"},
		},
		{
			name: "won",
			snap: session.Snapshot{
				Status:    transport.Connected,
				State:     session.Won,
				MySymbol:  board.O,
				HasWinner: true,
				Winner:    board.WinResult{Symbol: board.O, Line: [3]int{2, 4, 6}},
			},
			want: []string{"O wins! You won."},
		},
		{
			name: "draw",
			snap: session.Snapshot{Status: transport.Connected, State: session.Draw},
			want: []string{"Draw."},
		},
		{
			name: "error",
			snap: session.Snapshot{Status: transport.Error, State: session.AwaitingConnection, Err: errors.New("peer-unavailable")},
			want: []string{"Error: peer-unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			NewPlainTerminal(&out).RenderSnapshot(tt.snap, nil)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

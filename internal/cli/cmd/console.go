package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/board"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/render"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

var (
	errUnknownInput  = errors.New("unknown input")
	errNotNetworked  = errors.New("not available in a local game")
	errMissingPeerID = errors.New("usage: c <peer-id>")
)

// game is what the console drives: a networked session or a hotseat board.
type game interface {
	Snapshot() session.Snapshot
	Click(pos int) bool
	Reset()
}

type networkGame struct{ s *session.Session }

func (g networkGame) Snapshot() session.Snapshot { return g.s.Snapshot() }
func (g networkGame) Click(pos int) bool         { return g.s.AttemptLocalMove(pos) }
func (g networkGame) Reset()                     { g.s.RequestReset() }

// Connect redials after a failed or dropped attempt; the outcome arrives
// as a status change.
func (g networkGame) Connect(peerID string) error { return g.s.Connect(peerID) }
func (g networkGame) Disconnect()                 { g.s.Disconnect() }

// linker is implemented by games played over a transport.
type linker interface {
	Connect(peerID string) error
	Disconnect()
}

type localGame struct{ l *session.Local }

func (g localGame) Snapshot() session.Snapshot { return g.l.Snapshot() }
func (g localGame) Click(pos int) bool         { return g.l.Click(pos) }
func (g localGame) Reset()                     { g.l.Reset() }

type inputKind int

const (
	inputMove inputKind = iota
	inputReset
	inputQuit
	inputConnect
	inputDisconnect
)

type input struct {
	kind   inputKind
	pos    int
	peerID string
}

func parseInput(line string) (input, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return input{}, fmt.Errorf("%w %q", errUnknownInput, line)
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "r", "reset":
		return input{kind: inputReset}, nil
	case "q", "quit", "exit":
		return input{kind: inputQuit}, nil
	case "d", "disconnect":
		return input{kind: inputDisconnect}, nil
	case "c", "connect":
		if len(fields) != 2 {
			return input{}, errMissingPeerID
		}
		// peer ids are case sensitive
		return input{kind: inputConnect, peerID: fields[1]}, nil
	}

	pos, err := strconv.Atoi(fields[0])
	if err != nil || len(fields) > 1 || !board.ValidPosition(pos) {
		return input{}, fmt.Errorf("%w %q", errUnknownInput, strings.TrimSpace(line))
	}
	return input{kind: inputMove, pos: pos}, nil
}

// console reads player input and redraws the board. When notifies is set
// the game reports its own changes through redraw; otherwise the console
// redraws after every input.
type console struct {
	out      io.Writer
	term     *render.Terminal
	game     game
	notifies bool

	accepted atomic.Bool

	mu      sync.Mutex
	spinner *progressbar.ProgressBar
	waiting bool
}

func newConsole(out io.Writer, term *render.Terminal, g game, notifies bool) *console {
	return &console{out: out, term: term, game: g, notifies: notifies}
}

func (c *console) redraw() {
	snap := c.game.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.waiting = snap.State == session.AwaitingConnection && snap.Status != transport.Error
	if c.spinner != nil {
		_ = c.spinner.Finish()
		c.spinner = nil
	}
	c.term.RenderSnapshot(snap, c.click)
}

func (c *console) click(pos int) {
	c.accepted.Store(c.game.Click(pos))
}

// spin animates a spinner while no opponent is connected.
func (c *console) spin(ctx context.Context) {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.waiting {
			if c.spinner == nil {
				c.spinner = progressbar.NewOptions(-1,
					progressbar.OptionSetWriter(c.out),
					progressbar.OptionSetDescription("Waiting for opponent"),
					progressbar.OptionSpinnerType(14),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = c.spinner.Add(1)
		}
		c.mu.Unlock()
	}
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.redraw()
	if c.notifies {
		go c.spin(ctx)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := parseInput(line)
		if err != nil {
			c.println(err.Error())
			continue
		}

		switch req.kind {
		case inputQuit:
			return nil
		case inputReset:
			c.game.Reset()
		case inputMove:
			c.accepted.Store(false)
			if !c.term.Click(req.pos) || !c.accepted.Load() {
				c.println(fmt.Sprintf("Move %d ignored", req.pos))
				continue
			}
		case inputConnect, inputDisconnect:
			l, ok := c.game.(linker)
			if !ok {
				c.println(errNotNetworked.Error())
				continue
			}
			if req.kind == inputDisconnect {
				l.Disconnect()
				break
			}
			if err := l.Connect(req.peerID); err != nil {
				c.println(fmt.Sprintf("Cannot connect to %s: %v", req.peerID, err))
				continue
			}
		}

		if !c.notifies {
			c.redraw()
		}
	}
}

func (c *console) println(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg)
}

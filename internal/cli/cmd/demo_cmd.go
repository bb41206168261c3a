package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/render"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport/memory"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	demoTimeout  = 10 * time.Second
	pollInterval = 10 * time.Millisecond
)

var errDemoStalled = errors.New("demo stalled")

// demoMoves ends with X taking the main diagonal.
var demoMoves = []int{0, 1, 4, 2, 8}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "play a scripted game between two in-process peers",
	Long:  `runs a host and a joiner over an in-memory network and plays a short scripted game, printing the host's board after every move.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, err := setup()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		_, err = runDemo(ctx, render.NewTerminal(out), out, log, demoMoves)
		return err
	},
}

// runDemo connects two sessions over an in-memory network, plays moves
// alternately starting with the host, and returns the host's final state.
func runDemo(ctx context.Context, term *render.Terminal, out io.Writer, log *logrus.Logger, moves []int) (session.Snapshot, error) {
	network := memory.New()
	host := session.New(transport.NewEndpoint(network, transport.Config{Logger: log}), session.Config{Logger: log})
	joiner := session.New(transport.NewEndpoint(network, transport.Config{Logger: log}), session.Config{Logger: log})
	defer host.Close()
	defer joiner.Close()

	if err := host.Host(ctx); err != nil {
		return session.Snapshot{}, err
	}
	if err := waitUntil(ctx, func() bool { return host.Snapshot().LocalID != "" }); err != nil {
		return session.Snapshot{}, fmt.Errorf("host endpoint: %w", err)
	}

	hostID := host.Snapshot().LocalID
	fmt.Fprintf(out, "Host %s is waiting\n", hostID)

	if err := joiner.Join(ctx, hostID); err != nil {
		return session.Snapshot{}, err
	}
	if err := waitUntil(ctx, func() bool { return host.OpponentReady() && joiner.OpponentReady() }); err != nil {
		return session.Snapshot{}, fmt.Errorf("handshake: %w", err)
	}
	fmt.Fprintln(out, "Both players ready")

	for i, pos := range moves {
		mover, other := host, joiner
		if i%2 == 1 {
			mover, other = joiner, host
		}

		if !mover.AttemptLocalMove(pos) {
			return host.Snapshot(), fmt.Errorf("move %d at %d rejected", i, pos)
		}
		want := mover.Board()
		if err := waitUntil(ctx, func() bool { return other.Board() == want }); err != nil {
			return host.Snapshot(), fmt.Errorf("move %d: %w", i, err)
		}

		fmt.Fprintf(out, "%s plays %d\n", mover.MySymbol(), pos)
		term.RenderSnapshot(host.Snapshot(), nil)
	}

	return host.Snapshot(), nil
}

func waitUntil(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !cond() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", errDemoStalled, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

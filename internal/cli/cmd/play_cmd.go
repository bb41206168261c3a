package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/render"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/spf13/cobra"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "host a game and wait for an opponent",
	Long:  `registers with the signaling server, prints your id and waits for the opponent to join with it. The host plays X.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return playNetwork(cmd, func(ctx context.Context, s *session.Session) error {
			return s.Host(ctx)
		})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join peer-id",
	Short: "join a hosted game",
	Long:  `connects to the host with the given id. The joiner plays O.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		peerID := args[0]
		return playNetwork(cmd, func(ctx context.Context, s *session.Session) error {
			return s.Join(ctx, peerID)
		})
	},
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "play both sides on this terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := newConsole(cmd.OutOrStdout(), render.NewTerminal(cmd.OutOrStdout()), localGame{session.NewLocal()}, false)
		return c.run(ctx, cmd.InOrStdin())
	},
}

func playNetwork(cmd *cobra.Command, start func(context.Context, *session.Session) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := newNetworkSession(cfg, log)
	defer func() {
		if err := s.Close(); err != nil {
			log.Warnf("Failed to close session: %v", err)
		}
	}()

	out := cmd.OutOrStdout()
	c := newConsole(out, render.NewTerminal(out), networkGame{s}, true)
	s.OnChange(func(session.Snapshot) { c.redraw() })

	if err := start(ctx, s); err != nil {
		return err
	}
	return c.run(ctx, cmd.InOrStdin())
}

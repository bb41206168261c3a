package cmd

import (
	"context"
	"os"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/config"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/logger"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/protocol"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/session"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/signaling"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/transport/webrtc"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   `tictactoe`,
	Short: "peer to peer tic-tac-toe",
	Long: `tictactoe is a two player tic-tac-toe game played directly between two
terminals over a WebRTC data channel. One player hosts and shares their id,
the other joins with it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + "\nEnvironment:\n" + config.Usage() + "\n")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(localCmd)
	rootCmd.AddCommand(demoCmd)
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newNetworkSession wires a session to a WebRTC endpoint that exchanges
// session descriptions through the configured signaling server.
func newNetworkSession(cfg *config.Config, log *logrus.Logger) *session.Session {
	network := webrtc.New(func(ctx context.Context) (transport.Signaler, error) {
		return signaling.Dial(ctx, cfg.Signaling.URL, log)
	}, webrtc.Config{
		ICEServers: cfg.WebRTC.STUNServers,
		Logger:     log,
	})

	ep := transport.NewEndpoint(network, transport.Config{
		ConnectTimeout: cfg.WebRTC.ConnectTimeout,
		Logger:         log,
	})
	return session.New(ep, session.Config{
		Codec:  protocol.NewCodecWithFormat(cfg.Game.Format()),
		Logger: log,
	})
}

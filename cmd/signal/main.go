package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/config"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/db"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/logger"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/signaling"
	"github.com/rudransh-shrivastava/peer-tac-toe/internal/store"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          `signal`,
	Short:        "runs the tictactoe signaling server",
	Long:         `runs the signaling server that assigns peer ids and relays WebRTC session descriptions between players`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := logger.New(os.Stderr, cfg.LogLevel)
		if err != nil {
			return err
		}

		gormDB, err := db.NewDB(cfg.Signaling.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to open peer registry: %w", err)
		}

		server := signaling.NewServer(signaling.Config{
			Store:  store.NewPeerStore(gormDB),
			Logger: log,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Start(ctx, cfg.Signaling.ListenAddr)
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

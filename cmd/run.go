package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wirebot/pkg/bus"
	"wirebot/pkg/command"
	"wirebot/pkg/config"
	"wirebot/pkg/connection"
	"wirebot/pkg/logger"
	"wirebot/pkg/protocol"
	"wirebot/pkg/runtime"
	"wirebot/pkg/sender"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the platform and dispatch messages",
	Long:  "Loads WireBot configuration, connects to the platform gateway, and runs the dispatch loop until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("invalid config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.run")

		snd, err := sender.New(cfg.Platform.APIURL, log)
		if err != nil {
			log.Error("Failed to initialize sender", "error", err)
			return
		}

		router := command.NewRouter(log)
		registerBuiltins(router)

		dial := func() runtime.Transport {
			return connection.NewClient(connection.Config{
				GatewayURL:        cfg.Platform.GatewayURL,
				Token:             cfg.Platform.Token,
				HeartbeatInterval: secondsToDuration(cfg.Heartbeat.IntervalSeconds),
				MaxMissed:         cfg.Heartbeat.MaxMissed,
			}, log)
		}

		svc, err := runtime.NewService(cfg, bus.New(), protocol.NewClassifier(cfg.Platform.Token, log), router, snd, dial, log)
		if err != nil {
			log.Error("Failed to initialize runtime service", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("Runtime starting", "gateway", cfg.Platform.GatewayURL, "commands", router.Commands())
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// registerBuiltins installs the stock commands shipped with the runtime.
func registerBuiltins(router *command.Router) {
	_ = router.Register("/ping", "", func(ctx context.Context, inv command.Invocation) error {
		return inv.Reply(ctx, "pong")
	})
}

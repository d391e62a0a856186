package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"Meadow3D/internal/audio"
	"Meadow3D/internal/config"
	"Meadow3D/internal/engine"
	"Meadow3D/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	// glfw and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		variant    string
		debug      bool
		volume     float64
	)

	cmd := &cobra.Command{
		Use:           "meadow",
		Short:         "Run the meadow scene",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger.Init(debug)
			defer logger.Sync()

			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Log.Error("Config rejected", zap.Error(err))
				return err
			}
			if cmd.Flags().Changed("variant") {
				cfg.Variant = config.Variant(variant)
				if err := cfg.Validate(); err != nil {
					logger.Log.Error("Config rejected", zap.Error(err))
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			meadow := engine.NewMeadow(cfg, audio.NewSpeakerSink(volume))
			if err := meadow.Run(ctx); err != nil {
				if errors.Is(err, engine.ErrNoDisplay) {
					logger.Log.Error("No display available", zap.Error(err))
				} else {
					logger.Log.Error("Meadow stopped with error", zap.Error(err))
				}
				return fmt.Errorf("run %s: %w", cfg.Variant, err)
			}
			logger.Log.Info("Meadow closed")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&variant, "variant", string(config.VariantOrbit), "scene variant: orbit or lookout")
	flags.BoolVar(&debug, "debug", false, "enable debug logging")
	flags.Float64Var(&volume, "volume", 0, "audio volume offset, 0 keeps the clip level")
	return cmd
}

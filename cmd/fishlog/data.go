package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fishinglog/internal/app"
	"github.com/fishinglog/internal/config"
	"github.com/fishinglog/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openApp 读取配置并初始化数据库与照片存储
func openApp(ctx context.Context, envFile string) (*app.App, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.GinMode == "debug")
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log)
}

func newServeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			instance, err := openApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer instance.Close()
			defer func() { _ = instance.Logger.Sync() }()

			return instance.Run(ctx)
		},
	}
}

func newExportCmd(envFile *string) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every trip, catch, gear item and photo to a zip archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			instance, err := openApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer instance.Close()

			if out == "" {
				out = fmt.Sprintf("fishlog-%s.zip", time.Now().In(instance.Config.TimeLocation()).Format("20060102-150405"))
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := instance.API.Archive().Export(ctx, file); err != nil {
				file.Close()
				os.Remove(out)
				return fmt.Errorf("export: %w", err)
			}
			if err := file.Close(); err != nil {
				return err
			}

			instance.Logger.Info("archive exported", zap.String("path", out))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default fishlog-<timestamp>.zip)")
	return cmd
}

func newImportCmd(envFile *string) *cobra.Command {
	var (
		in  string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all data with the contents of a zip archive or legacy JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return errors.New("--file is required")
			}
			if !yes {
				return errors.New("import replaces all existing data; rerun with --yes to confirm")
			}

			ctx := cmd.Context()
			instance, err := openApp(ctx, *envFile)
			if err != nil {
				return err
			}
			defer instance.Close()

			file, err := os.Open(in)
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := instance.API.Archive().ImportAuto(ctx, file)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d trips, %d weather logs, %d catches, %d photos, %d gear items\n",
				result.Trips, result.WeatherLogs, result.Catches, result.Photos, result.Gear)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "file", "f", "", "archive to import (.zip or .json)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing existing data")
	return cmd
}

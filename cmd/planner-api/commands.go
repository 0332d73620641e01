package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/pkg/config"
	"github.com/noah-isme/planner-sync-api/pkg/logger"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "planner-api",
		Short:        "Shared multi-calendar planner backend",
		Long:         `planner-api serves calendars to polling browser clients and reconciles concurrent saves with a three-way merge.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "import-legacy [file]",
		Short: "Import a single-calendar state file when no calendars exist",
		Long: `Reads a legacy schedule file (a bare state or {"state": ..., "updatedAt": ...})
and stores it as the calendar "My Calendar". Nothing happens when the store
already holds calendars. The file defaults to LEGACY_STATE_FILE.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runImportLegacy(cmd.Context(), path)
		},
	})

	return root
}

// bootstrap loads configuration and the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}

func runImportLegacy(ctx context.Context, path string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	if path != "" {
		cfg.Storage.LegacyStateFile = path
	}

	st, err := openStore(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer st.Close()

	calendars := newCalendarService(st, nil, logr)
	if err := calendars.Load(ctx); err != nil {
		return err
	}
	imported, err := importLegacy(ctx, calendars, cfg.Storage.LegacyStateFile, logr)
	if err != nil {
		return err
	}
	if !imported {
		fmt.Fprintln(os.Stdout, "nothing imported")
		return nil
	}
	fmt.Fprintln(os.Stdout, "legacy calendar imported")
	return nil
}

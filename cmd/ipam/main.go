package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ipamkit/ipamkit/internal/db"
	"github.com/ipamkit/ipamkit/internal/domain"
	"github.com/ipamkit/ipamkit/internal/memdb"
)

var (
	dsn       string
	stateFile string
	backupDir string
	logLevel  string
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ipam",
		Short: "Manage address spaces and assignments",
		Long: `ipam tracks CIDR address spaces, the addresses assigned inside them,
and reserved ranges excluded from allocation. State lives in Postgres
when --dsn is set, otherwise in a local JSON state file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", os.Getenv("IPAM_DSN"), "Postgres connection string (uses the state file when empty)")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state", envOr("IPAM_STATE", "ipam-state.json"), "State file path for DSN-less use")
	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", envOr("IPAM_BACKUP_DIR", "backups"), "Directory for backup snapshots")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("IPAM_LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(
		newSpaceCmd(),
		newAssignCmd(),
		newReleaseCmd(),
		newRangeCmd(),
		newNextCmd(),
		newAvailableCmd(),
		newQueryCmd(),
		newExportCmd(),
		newImportCmd(),
		newBackupCmd(),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// runtimeEnv is the wired-up store plus the service over it. save persists
// the state file in DSN-less mode and is a no-op against Postgres.
type runtimeEnv struct {
	svc   domain.AllocationService
	snap  domain.Snapshotter
	save  func(context.Context) error
	close func()
}

func openEnv(ctx context.Context) (*runtimeEnv, error) {
	logger := newLogger(logLevel)

	if dsn != "" {
		pool, err := db.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}

		store := db.NewStore(pool)
		svc := domain.NewLoggingAllocationService(logger,
			domain.NewAllocationService(store.Spaces(), store.Assignments(), store.Ranges()))
		return &runtimeEnv{
			svc:   svc,
			snap:  store,
			save:  func(context.Context) error { return nil },
			close: pool.Close,
		}, nil
	}

	store := memdb.New()
	if data, err := os.ReadFile(stateFile); err == nil {
		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("state file %s: %w", stateFile, err)
		}
		if err := store.Load(ctx, snap); err != nil {
			return nil, fmt.Errorf("state file %s: %w", stateFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	svc := domain.NewLoggingAllocationService(logger,
		domain.NewAllocationService(store.Spaces(), store.Assignments(), store.Ranges()))
	return &runtimeEnv{
		svc:  svc,
		snap: store,
		save: func(ctx context.Context) error {
			snap, err := store.Dump(ctx)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(stateFile, data, 0o600)
		},
		close: func() {},
	}, nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/iksnae/hospital-console/internal"
	"github.com/iksnae/hospital-console/internal/sandbox"
	"github.com/spf13/cobra"
)

var (
	sandboxAddr   string
	sandboxDB     string
	sandboxSeed   string
	sandboxNoSeed bool
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run a local demo backend",
	Long: `Run a local backend that speaks the hospital API, for trying the
console without a real server.

Data lives in memory unless --db names a sqlite file. An empty database is
seeded with demo users, wards, beds and log entries, or with the YAML file
given by --seed. The assistant answers questions from the data it holds.

Requests must carry the configured --token; with no token configured any
bearer token is accepted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !rootCmd.PersistentFlags().Changed("log-level") && !verbose {
			internal.SetLogLevel(internal.LogLevelInfo)
		}

		db, err := sandbox.Open(sandboxDB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := seedSandbox(db); err != nil {
			return err
		}

		srv := sandbox.NewServer(db, cfg.Token, internal.Logger())
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(sandboxAddr) }()

		internal.PrintInfo("Sandbox listening on %s (Ctrl+C to stop)", sandboxAddr)
		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		internal.PrintSuccess("Sandbox stopped")
		return nil
	},
}

// seedSandbox fills an empty database from --seed or the demo data.
func seedSandbox(db *sandbox.DB) error {
	if sandboxNoSeed {
		return nil
	}
	stats, err := db.Stats()
	if err != nil {
		return err
	}
	if stats.Users > 0 || stats.Wards > 0 {
		internal.LogInfo("database already holds data; not seeding")
		return nil
	}

	seed := sandbox.DefaultSeed()
	if sandboxSeed != "" {
		if seed, err = sandbox.LoadSeed(sandboxSeed); err != nil {
			return err
		}
	}
	if err := seed.Apply(db); err != nil {
		return fmt.Errorf("failed to seed: %w", err)
	}
	internal.LogInfo("seeded %d users and %d wards", len(seed.Users), len(seed.Wards))
	return nil
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", "localhost:8000", "Listen address")
	sandboxCmd.Flags().StringVar(&sandboxDB, "db", "", "sqlite file to keep data in (default in memory)")
	sandboxCmd.Flags().StringVar(&sandboxSeed, "seed", "", "YAML seed file used when the database is empty")
	sandboxCmd.Flags().BoolVar(&sandboxNoSeed, "no-seed", false, "Start with an empty database")
	rootCmd.AddCommand(sandboxCmd)
}

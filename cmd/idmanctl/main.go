// Package main provides idmanctl, the identity administration CLI. It
// drives the identity facade in-process against a PostgreSQL or in-memory
// account store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idman.org/internal/identity"
	"idman.org/internal/identity/tokens"
	"idman.org/internal/obs"
	"idman.org/internal/store/mem"
	"idman.org/internal/store/pg"
)

var version = "0.3.1"

var (
	// configFile is set by the --config flag.
	configFile string

	// svc is the facade instance, initialized on startup.
	svc *identity.Service

	// pgStore holds the PostgreSQL handle when that backend is selected,
	// so the CLI can close it on exit.
	pgStore *pg.Store
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "idmanctl",
	Short: "idmanctl administers users and roles in the identity store",
	Long: `idmanctl is the administrative CLI for the idman identity service.
It manages users, roles and claims through the same facade the admin UI
consumes, against either a PostgreSQL store or an ephemeral in-memory one.`,
	PersistentPreRunE: initService,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if pgStore != nil {
			return pgStore.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: idmanctl.yaml in the working directory)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(roleCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(seedCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("idmanctl v" + version)
	},
}

// initService loads config, opens the selected backend and builds the
// facade.
func initService(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	obs.Init()

	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ts, err := tokens.NewService(cfg.TokenSecret,
		tokens.WithTTL(cfg.TokenTTL),
		tokens.WithRateLimit(cfg.TokenRatePerSecond, cfg.TokenRateBurst),
	)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	var store identity.Store
	switch cfg.Backend {
	case backendMem:
		store = mem.New(identity.AllCapabilities())
	case backendPostgres:
		pgStore, err = pg.Open(cfg.PostgresDSN, identity.AllCapabilities())
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		if err := pgStore.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = pgStore
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", cfg.Backend, backendMem, backendPostgres)
	}

	svc, err = identity.NewService(store, ts)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	return nil
}

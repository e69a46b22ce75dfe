package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gurwinder-gg/LootBazaar/internal/config"
	"github.com/gurwinder-gg/LootBazaar/internal/ledger"
	"github.com/gurwinder-gg/LootBazaar/internal/p2p"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const programName = "ledger-node"

var (
	cfgFile string
	debug   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "LootBazaar ledger node - token ledger and reward artifact minter",
		Long:  `A ledger node that holds token balances and reward artifacts and serves them to the LootBazaar API over libp2p.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(mintsCmd())
	rootCmd.AddCommand(balancesCmd())
	rootCmd.AddCommand(artifactsCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: debug,
		Level:     level,
	}))
	slog.SetDefault(logger)
	return logger
}

// openLedger loads the config and opens the migrated ledger database
func openLedger(logger *slog.Logger) (*config.NodeConfig, *storage.SQLiteDB, *ledger.Service, error) {
	cfg, err := config.LoadNode(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := storage.NewSQLite(cfg.DatabasePath())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Migrate(cfg.Node.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	return cfg, db, ledger.NewService(db, cfg.Ledger.ArtifactAuthority, logger), nil
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new ledger node",
		Long:  `Initialize a new ledger node by writing its config, generating its identity key and creating the ledger schema.`,
		RunE:  runInit,
	}

	cmd.Flags().String("name", "", "Node name (required)")
	cmd.Flags().String("data-dir", "data", "Data directory")
	cmd.Flags().String("artifact-authority", "", "Signer allowed to mint reward artifacts")
	cmd.Flags().StringSlice("trusted-peer", nil, "Peer ID allowed to send ledger requests (repeatable)")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	artifactAuthority, _ := cmd.Flags().GetString("artifact-authority")
	trustedPeers, _ := cmd.Flags().GetStringSlice("trusted-peer")
	if _, err := p2p.ParsePeerIDs(trustedPeers); err != nil {
		return err
	}

	cfg := config.DefaultNodeConfig()
	cfg.Node.Name = name
	cfg.Node.DataDir = dataDir
	cfg.Node.IdentityKey = filepath.Join(dataDir, "identity.key")
	cfg.Ledger.ArtifactAuthority = artifactAuthority
	cfg.Ledger.TrustedPeers = trustedPeers

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	db, err := storage.NewSQLite(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(cfg.Node.MigrationsPath); err != nil {
		return err
	}

	key, err := p2p.LoadOrCreateIdentity(cfg.Node.IdentityKey)
	if err != nil {
		return err
	}
	peerID, err := peer.IDFromPrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to derive peer ID: %w", err)
	}

	if err := cfg.Save(cfgFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Ledger node initialized successfully!\n")
	fmt.Printf("Peer ID: %s\n", peerID)
	fmt.Printf("Config saved to: %s\n", cfgFile)

	return nil
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ledger node",
		Long:  `Start the ledger node and serve transfer, mint and artifact requests over libp2p.`,
		RunE:  runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", "maxprocs")
	})); err != nil {
		return fmt.Errorf("failed to set GOMAXPROCS: %w", err)
	}

	cfg, db, ledgerService, err := openLedger(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	trusted, err := p2p.ParsePeerIDs(cfg.Ledger.TrustedPeers)
	if err != nil {
		return fmt.Errorf("invalid ledger.trusted_peers: %w", err)
	}
	if len(trusted) == 0 {
		return fmt.Errorf("ledger.trusted_peers must list the API peer IDs")
	}

	key, err := p2p.LoadOrCreateIdentity(cfg.Node.IdentityKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p2pNode, err := p2p.NewNode(p2p.NodeConfig{
		ListenAddresses: cfg.P2P.ListenAddresses,
		BootstrapPeers:  cfg.P2P.BootstrapPeers,
		EnableTCP:       true,
		EnableQUIC:      true,
		Identity:        key,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create P2P node: %w", err)
	}
	if err := p2pNode.Start(ctx); err != nil {
		return fmt.Errorf("failed to start P2P node: %w", err)
	}
	defer p2pNode.Close()

	p2p.ServeLedger(p2pNode.Host(), ledgerService, trusted, logger)
	defer p2p.StopServingLedger(p2pNode.Host())

	logger.Info("ledger node started",
		"name", cfg.Node.Name, "peer_id", p2pNode.ID().String(), "addrs", strings.Join(p2pNode.Addrs(), ","),
		"trusted_peers", len(trusted))

	<-ctx.Done()
	logger.Info("shutting down ledger node")
	return nil
}

func mintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mints",
		Short: "Manage token mints",
	}

	createCmd := &cobra.Command{
		Use:   "create <id> <authority>",
		Short: "Create a new token mint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decimals, _ := cmd.Flags().GetUint8("decimals")
			_, db, svc, err := openLedger(newLogger())
			if err != nil {
				return err
			}
			defer db.Close()

			mint, err := svc.CreateMint(cmd.Context(), args[0], args[1], decimals)
			if err != nil {
				return err
			}
			fmt.Printf("Created mint %s (authority %s, %d decimals)\n", mint.ID, mint.Authority, mint.Decimals)
			return nil
		},
	}
	createCmd.Flags().Uint8("decimals", 9, "Token decimals")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all mints",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, svc, err := openLedger(newLogger())
			if err != nil {
				return err
			}
			defer db.Close()

			mints, err := svc.ListMints(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list mints: %w", err)
			}
			fmt.Printf("%-16s %-48s %-8s %-20s\n", "MINT", "AUTHORITY", "DECIMALS", "SUPPLY")
			for _, m := range mints {
				fmt.Printf("%-16s %-48s %-8d %-20d\n", m.ID, m.Authority, m.Decimals, m.Supply)
			}
			return nil
		},
	}

	cmd.AddCommand(createCmd, listCmd)
	return cmd
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances [account]",
		Short: "List account balances, optionally for one account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account string
			if len(args) == 1 {
				account = args[0]
			}
			_, db, svc, err := openLedger(newLogger())
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := svc.ListAccounts(cmd.Context(), account)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			fmt.Printf("%-64s %-16s %-48s %-20s\n", "ACCOUNT", "MINT", "OWNER", "BALANCE")
			for _, a := range accounts {
				fmt.Printf("%-64s %-16s %-48s %-20d\n", a.ID, a.Mint, a.Owner, a.Balance)
			}
			return nil
		},
	}
}

func artifactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "List minted reward artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			_, db, svc, err := openLedger(newLogger())
			if err != nil {
				return err
			}
			defer db.Close()

			artifacts, err := svc.ListArtifacts(cmd.Context(), owner)
			if err != nil {
				return fmt.Errorf("failed to list artifacts: %w", err)
			}
			fmt.Printf("%-36s %-32s %-32s %-8s\n", "ARTIFACT ID", "OWNER", "NAME", "ROYALTY")
			for _, a := range artifacts {
				fmt.Printf("%-36s %-32s %-32s %-8d\n", a.ID, a.Owner, a.Name, a.RoyaltyBps)
			}
			return nil
		},
	}
	cmd.Flags().String("owner", "", "Only list artifacts held by this owner")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			_, db, svc, err := openLedger(newLogger())
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := svc.History(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to load history: %w", err)
			}
			for _, e := range entries {
				fmt.Printf("%6d %-9s %-8s %s -> %s %d\n", e.ID, e.Kind, e.Mint, e.Source, e.Target, e.Amount)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "Number of entries to show")
	return cmd
}

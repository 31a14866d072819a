package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/finbook-app/finbook/pkg/categorize"
	"github.com/finbook-app/finbook/pkg/config"
	"github.com/finbook-app/finbook/pkg/importer"
	"github.com/finbook-app/finbook/pkg/models"
	"github.com/finbook-app/finbook/pkg/parser"
	"github.com/finbook-app/finbook/pkg/server"
	"github.com/finbook-app/finbook/pkg/service"
	"github.com/finbook-app/finbook/pkg/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "finbook",
	Short: "Personal finance tracker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the finbook HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger("finbook")

		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		owner, err := bootstrapUser(store, cfg)
		if err != nil {
			return err
		}

		p := parser.New(logger)
		enricher := categorize.NewEnricher(logger)
		imp := importer.New(store, p, enricher, cfg.AIModel, logger)
		svc := service.New(store, service.SystemClock{}, logger)

		srv := server.New(svc, imp, owner.ID, logger)
		logger.Info("starting server", "addr", cfg.ListenAddr, "db", cfg.DBPath)
		return srv.Start(cfg.ListenAddr)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <manifest.yaml>",
	Short: "Import bank statements listed in a YAML manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger("finbook-import")

		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		owner, err := bootstrapUser(store, cfg)
		if err != nil {
			return err
		}

		manifest, err := importer.ManifestFromFile(args[0])
		if err != nil {
			return err
		}

		p := parser.New(logger)
		enricher := categorize.NewEnricher(logger)
		imp := importer.New(store, p, enricher, cfg.AIModel, logger)

		total, err := imp.ImportManifest(context.Background(), owner.ID, manifest)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d transactions\n", total)
		return nil
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <statement-file>",
	Short: "Parse a statement file and dump the extracted records",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		logger := newLogger("finbook-parse")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		records, err := parser.New(logger).ProcessBytes(data, filepath.Base(args[0]))
		if err != nil {
			return err
		}

		pp.Println(records)
		fmt.Printf("%d records\n", len(records))
		return nil
	},
}

func newLogger(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

// bootstrapUser returns the first user, creating it on an empty
// database so the server always has an owner to bind to.
func bootstrapUser(store storage.Store, cfg *config.Config) (*models.User, error) {
	owner, err := store.FirstUser()
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	owner = &models.User{Name: cfg.UserName, Currency: cfg.Currency, AIKey: cfg.AIKey}
	if err := store.CreateUser(owner); err != nil {
		return nil, err
	}
	return owner, nil
}

func init() {
	gotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database path")

	serveCmd.Flags().String("listen-addr", "", "Listen address")
	serveCmd.Flags().String("ai-model", "", "Model used for transaction categorization")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(parseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

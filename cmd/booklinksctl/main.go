// Command booklinksctl runs BookLinks maintenance jobs against the
// configured database:
//
//	booklinksctl fix-covers
//	booklinksctl seed-references [--title "Deep Work" ...]
//
// Configuration is read the same way as the server (BOOKLINKS_CONFIG or
// --config, then environment variables).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/booklinks/booklinks/internal/booksapi"
	"github.com/booklinks/booklinks/internal/config"
	"github.com/booklinks/booklinks/internal/llm"
	"github.com/booklinks/booklinks/internal/logger"
	"github.com/booklinks/booklinks/internal/maintenance"
	sqliteRepo "github.com/booklinks/booklinks/internal/repository/sqlite"
	"github.com/booklinks/booklinks/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand works against.
type env struct {
	cfg    *config.Config
	db     *sqliteRepo.DB
	books  *booksapi.Client
	logger *slog.Logger
	close  func()
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "booklinksctl",
		Short:        "BookLinks maintenance jobs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $"+config.EnvConfigFile+")")

	open := func(cmd *cobra.Command) (*env, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		log, logCloser := logger.New(logger.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		}, cmd.ErrOrStderr())

		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			logCloser.Close()
			return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
		}

		books := booksapi.NewClient(booksapi.Config{
			BaseURL:           cfg.GoogleBooksBaseURL,
			APIKey:            cfg.GoogleBooksAPIKey,
			RequestsPerSecond: cfg.GoogleBooksRate,
			Burst:             cfg.GoogleBooksBurst,
		}, log)

		return &env{
			cfg:    cfg,
			db:     db,
			books:  books,
			logger: log,
			close: func() {
				db.Close()
				logCloser.Close()
			},
		}, nil
	}

	root.AddCommand(newFixCoversCmd(open), newSeedReferencesCmd(open))
	return root
}

type opener func(cmd *cobra.Command) (*env, error)

func newFixCoversCmd(open opener) *cobra.Command {
	var pace time.Duration

	cmd := &cobra.Command{
		Use:   "fix-covers",
		Short: "Replace missing or placeholder covers with books API thumbnails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			fixer := maintenance.NewCoverFixer(e.db, e.books, pace, cmd.OutOrStdout(), e.logger)
			_, err = fixer.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().DurationVar(&pace, "pace", maintenance.DefaultCoverPace, "minimum gap between books API searches")
	return cmd
}

func newSeedReferencesCmd(open opener) *cobra.Command {
	var (
		titles []string
		pace   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed-references",
		Short: "Run reference discovery for popular titles already in the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			suggester := llm.New(llm.Config{
				BaseURL: e.cfg.OpenAIBaseURL,
				APIKey:  e.cfg.OpenAIAPIKey,
				Model:   e.cfg.OpenAIModel,
			})
			if !suggester.Configured() {
				e.logger.Warn("OPENAI_API_KEY not set; seeding from the books API only")
			}
			discovery := service.NewDiscoveryService(e.db, e.db, suggester, e.books, e.logger)

			seeder := maintenance.NewSeeder(e.db, discovery, pace, cmd.OutOrStdout(), e.logger)
			_, err = seeder.Run(cmd.Context(), titles)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&titles, "title", nil, "title to seed (repeatable; default: the built-in popular list)")
	cmd.Flags().DurationVar(&pace, "pace", maintenance.DefaultSeedPace, "minimum gap between discovery runs")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weatheragent/internal/config"
	"weatheragent/internal/logger"
	"weatheragent/internal/model"
	"weatheragent/internal/repository"
)

const serviceName = "weather-agent"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:          serviceName,
	Short:        "Conversational weather assistant API",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the chat history schema",
	RunE:  runMigrate,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear stored conversations",
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the most recent turns of a session",
	RunE:  runHistoryShow,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every turn of a session",
	RunE:  runHistoryClear,
}

var (
	sessionFlag string
	limitFlag   int
	latestFlag  bool
)

func init() {
	historyShowCmd.Flags().StringVar(&sessionFlag, "session", "", "session id (empty shows all sessions)")
	historyShowCmd.Flags().IntVar(&limitFlag, "limit", 10, "number of turns")
	historyShowCmd.Flags().BoolVar(&latestFlag, "latest", false, "only the newest turn")
	historyClearCmd.Flags().StringVar(&sessionFlag, "session", "", "session id")
	_ = historyClearCmd.MarkFlagRequired("session")

	historyCmd.AddCommand(historyShowCmd, historyClearCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens the history store.
func bootstrap(ctx context.Context) (*config.Config, *zap.Logger, *repository.HistoryRepository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}

	repo, err := repository.NewHistoryRepository(ctx, cfg.Database, cfg.GetDatabaseDSN())
	if err != nil {
		_ = log.Sync()
		return nil, nil, nil, err
	}

	log.Info("connected to chat history database", zap.String("driver", cfg.Database.Driver))
	return cfg, log, repo, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, log, repo, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	log.Info("chat history schema ready")
	return nil
}

func runHistoryShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, log, repo, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer repo.Close()

	turns, err := loadTurns(ctx, repo, sessionFlag, limitFlag, latestFlag)
	if err != nil {
		return err
	}
	printTurns(cmd.OutOrStdout(), turns)
	return nil
}

// turnReader is the subset of the history repository the CLI reads from.
type turnReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]model.Turn, error)
	Latest(ctx context.Context, sessionID string) (*model.Turn, error)
}

func loadTurns(ctx context.Context, repo turnReader, sessionID string, limit int, latest bool) ([]model.Turn, error) {
	if !latest {
		return repo.Recent(ctx, sessionID, limit)
	}
	turn, err := repo.Latest(ctx, sessionID)
	if err != nil || turn == nil {
		return nil, err
	}
	return []model.Turn{*turn}, nil
}

func printTurns(out io.Writer, turns []model.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(out, "no turns stored")
		return
	}
	for _, turn := range turns {
		fmt.Fprintf(out, "[%s] %s\n  user: %s\n  ai:   %s\n",
			turn.CreatedAt.Format("2006-01-02 15:04:05"), turn.SessionID, turn.UserMessage, turn.AIResponse)
	}
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, log, repo, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer repo.Close()

	ok, err := repo.Clear(ctx, sessionFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared session %s: %t\n", sessionFlag, ok)
	return nil
}

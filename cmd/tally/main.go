package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/handler"
	"github.com/tallyhq/tally/internal/infra/cache"
	"github.com/tallyhq/tally/internal/infra/observability"
	"github.com/tallyhq/tally/internal/infra/secrets"
	"github.com/tallyhq/tally/internal/infra/sqlite"
	"github.com/tallyhq/tally/internal/provider"
	"github.com/tallyhq/tally/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	// In-tree providers register themselves on import.
	_ "github.com/tallyhq/tally/internal/provider/manual"
	_ "github.com/tallyhq/tally/internal/provider/property"
)

const usage = `usage: tally [-debug] <command>

commands:
  fetch      log in to each configured institution and record balances (default)
  serve      serve the dashboard API
  validate   check the configuration file and provider names
  init       write an example configuration file
`

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	command := "fetch"
	execCtx := domain.ExecutionContext{}
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-debug", "--debug":
			execCtx.Debug = true
			cfg.LogLevel = "debug"
		case "-h", "-help", "--help", "help":
			fmt.Print(usage)
			return
		default:
			command = arg
		}
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	var err error
	switch command {
	case "fetch":
		err = runFetch(cfg, execCtx, logger)
	case "serve":
		err = runServe(cfg, logger)
	case "validate":
		err = runValidate(cfg)
	case "init":
		err = runInit(cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

func runFetch(cfg *config.Config, execCtx domain.ExecutionContext, logger *zap.Logger) error {
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "tally")
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	metrics := observability.NewMetrics()
	store := sqlite.New(cfg.DatabasePath, logger)
	resolver, err := secrets.NewResolver(cfg.HeadlessSecretPath, cfg.VaultPath, promptStdin, logger)
	if err != nil {
		return err
	}

	fetcher := service.NewFetcher(cfg, store, resolver, metrics, logger)
	return fetcher.Fetch(context.Background(), execCtx)
}

func runServe(cfg *config.Config, logger *zap.Logger) error {
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "tally")
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	metrics := observability.NewMetrics()
	store := sqlite.New(cfg.DatabasePath, logger)
	if err := store.Open(context.Background()); err != nil {
		return err
	}
	defer store.Close()

	wealth := service.NewWealth(store, cache.New[any](cfg.CacheTTL), metrics, logger)
	router := handler.NewRouter(wealth, metrics, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runValidate(cfg *config.Config) error {
	relCfg, err := config.LoadRelationships(cfg.RelationshipsPath)
	if err != nil {
		return err
	}

	var bad int
	for _, rel := range relCfg.Relationships {
		mark := "ok"
		if !provider.IsRegistered(rel.Provider) {
			mark = "unknown provider"
			bad++
		}
		fmt.Printf("  %-30s %-15s %s\n", rel.Name, rel.Provider, mark)
	}
	fmt.Printf("%d relationship(s), %d problem(s)\n", len(relCfg.Relationships), bad)
	fmt.Printf("registered providers: %s\n", strings.Join(provider.Registered(), ", "))

	if bad > 0 {
		return fmt.Errorf("%d relationship(s) reference unknown providers", bad)
	}
	return nil
}

const exampleConfig = `relationships:
  - name: Home
    provider: property
    value: 650000
    loan:
      institution: Example Bank
      accountNumber: "100200300"

  - name: Wallet
    provider: manual
    accounts:
      - name: Cash
        number: wallet
        balance: 150
`

func runInit(cfg *config.Config) error {
	if _, err := os.Stat(cfg.RelationshipsPath); err == nil {
		return fmt.Errorf("config file already exists at %s", cfg.RelationshipsPath)
	}
	if err := os.WriteFile(cfg.RelationshipsPath, []byte(exampleConfig), 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote example config to %s\n", cfg.RelationshipsPath)
	return nil
}

// promptStdin asks for a secret on the terminal. Used by the vault when a
// key is seen for the first time.
func promptStdin(key string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", key)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

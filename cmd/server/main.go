package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/RichardoC/firmsite-copilot/internal/api"
	"github.com/RichardoC/firmsite-copilot/internal/config"
	"github.com/RichardoC/firmsite-copilot/internal/db"
	"github.com/RichardoC/firmsite-copilot/internal/logging"
	"github.com/RichardoC/firmsite-copilot/internal/models"
	"github.com/RichardoC/firmsite-copilot/internal/publish"
	"github.com/RichardoC/firmsite-copilot/internal/translate"
)

const defaultDBPath = "translations.db"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	yamlData, err := config.ReadYAML(config.ConfigPath(os.Args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cmd := &cli.Command{
		Name:   "firmsite-copilot",
		Usage:  "site assistant and article translation backend",
		Flags:  config.Flags(yamlData),
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:  "translate",
				Usage: "translate one article to Spanish and record its usage",
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{Name: "slug", Required: true, Usage: "article identifier recorded in the ledger"},
					&cli.StringFlag{Name: "title", Usage: "English title"},
					&cli.StringFlag{Name: "excerpt", Usage: "English excerpt"},
					&cli.StringFlag{Name: "body", Usage: "file holding the English body, - for stdin"},
					&cli.IntFlag{Name: "budget", Usage: "daily character budget, 0 for unlimited", Sources: cli.EnvVars("TRANSLATION_DAILY_BUDGET")},
				},
				Action: translateArticle,
			},
			{
				Name:  "usage",
				Usage: "show recorded translation usage",
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{Name: "runs", Value: 10, Usage: "number of recent runs to list"},
					&cli.IntFlag{Name: "prune", Usage: "delete runs older than this many days"},
				},
				Action: showUsage,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{Name: "db", Value: defaultDBPath, Usage: "SQLite usage ledger", Sources: cli.EnvVars("TRANSLATION_DB")}
}

func setup(c *cli.Command) (config.Config, *zap.Logger, error) {
	cfg := config.FromCommand(c)
	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Verbose {
		logger.Debug("configuration\n" + cfg.String())
	}
	return cfg, logger, nil
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	handler, err := api.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.CompletionAPIKey == "" {
		logger.Warn("no completion key configured; copilot requests will fail")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/copilot", handler)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func readBody(path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		raw, err := io.ReadAll(os.Stdin)
		return string(raw), err
	}
	raw, err := os.ReadFile(path)
	return string(raw), err
}

func translateArticle(ctx context.Context, c *cli.Command) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	body, err := readBody(c.String("body"))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	req := models.TranslationRequest{Title: c.String("title"), Excerpt: c.String("excerpt"), Body: body}
	if req.Chars() == 0 {
		return errors.New("nothing to translate: set --title, --excerpt or --body")
	}
	if cfg.CompletionAPIKey == "" && !cfg.HasDirectTranslator() {
		return errors.New(api.MissingKeyMessage)
	}

	ledger, err := db.New(c.String("db"))
	if err != nil {
		return err
	}
	defer ledger.Close()

	client := &http.Client{Timeout: time.Minute}
	pub := publish.New(translate.FromConfig(cfg, client, logger.Named("translate")), ledger, c.Int("budget"), cfg.Model, logger)
	res, err := pub.Translate(ctx, c.String("slug"), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func showUsage(_ context.Context, c *cli.Command) error {
	ledger, err := db.New(c.String("db"))
	if err != nil {
		return err
	}
	defer ledger.Close()

	if days := c.Int("prune"); days > 0 {
		cutoff := models.Day(time.Now().AddDate(0, 0, -days))
		n, err := ledger.PruneBefore(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d runs before %s\n", n, cutoff)
	}

	stats, err := ledger.Usage()
	if err != nil {
		return err
	}
	fmt.Println(stats.String())

	runs, err := ledger.Runs(c.Int("runs"))
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %-8s %7d  %s\n", run.CreatedAt.Format(time.RFC3339), run.Provider, run.Chars, run.Slug)
	}
	return nil
}

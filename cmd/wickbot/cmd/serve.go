package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/broker/paper"
	"github.com/rustyeddy/wickbot/config"
	"github.com/rustyeddy/wickbot/journal"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/metrics"
	"github.com/rustyeddy/wickbot/reconcile"
	sig "github.com/rustyeddy/wickbot/signal"
	"github.com/rustyeddy/wickbot/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: polling loop, webhook ingress and metrics",
	Long: `Start the bot against the paper broker.

The polling loop evaluates candles for every configured symbol on the
configured interval. The webhook ingress accepts externally generated
trade signals on /webhook/trade_signal. Both feed the same
reconciliation engine, so a symbol is never worked on by two signals
at once.

Example:
  wickbot serve -f wickbot.yaml`,
	RunE: runServe,
}

var serveConfigPath string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg := config.Default()
	if serveConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(serveConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jrnl, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jrnl.Close()

	pe := paper.NewEngine(broker.Account{
		Balance: cfg.Account.Balance,
		Equity:  cfg.Account.Balance,
	})
	if cfg.Account.MaxTrades > 0 {
		pe.SetMaxTrades(cfg.Account.MaxTrades)
	}
	for _, q := range cfg.Quotes {
		pe.SetQuote(market.Quote{
			Symbol: market.ResolveSymbol(q.Symbol),
			Bid:    q.Bid,
			Ask:    q.Ask,
			Time:   time.Now(),
		})
	}
	if err := pe.Connect(ctx); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer pe.Disconnect()

	engine := reconcile.NewEngine(pe, jrnl, log)
	detector := sig.NewDetector(cfg.Detector, log)

	symbols := make([]string, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		symbols[i] = market.ResolveSymbol(s)
	}

	interval, err := cfg.Runner.ParseInterval()
	if err != nil {
		return fmt.Errorf("runner interval: %w", err)
	}
	runner := reconcile.NewRunner(pe, detector, engine, log, symbols, interval, cfg.Runner.CandleCount)

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = metrics.Serve(cfg.Server.MetricsAddr)
		log.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics listening")
	}

	webhookSrv := &http.Server{
		Addr:    cfg.Server.WebhookAddr,
		Handler: webhook.NewServer(engine, log).Handler(),
	}
	webhookErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.WebhookAddr).Msg("webhook listening")
		if err := webhookSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			webhookErr <- err
		}
	}()

	runnerErr := make(chan error, 1)
	go func() { runnerErr <- runner.Run(ctx) }()

	log.Info().Strs("symbols", symbols).Dur("interval", interval).Msg("wickbot running")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-webhookErr:
		stop()
		log.Error().Err(err).Msg("webhook server failed")
	case err := <-runnerErr:
		stop()
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("runner stopped")
		}
	}

	// Stop taking new work, then let in-flight reconciliations drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = webhookSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	engine.Shutdown()

	log.Info().Msg("wickbot stopped")
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

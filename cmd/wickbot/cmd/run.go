package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/broker/paper"
	"github.com/rustyeddy/wickbot/config"
	"github.com/rustyeddy/wickbot/journal"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/reconcile"
	sig "github.com/rustyeddy/wickbot/signal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one evaluation pass against the paper broker",
	Long: `Load candles from a CSV file into the paper broker, run a single
detection and reconciliation pass for one symbol, and print the
resulting account, position and pending order state.

The CSV columns are: time (RFC3339), open, high, low, close. A header
row is skipped.

Example:
  wickbot run -f wickbot.yaml -s EURUSD -c candles.csv`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runSymbol      string
	runCandlesPath string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "EURUSD", "symbol to evaluate")
	runCmd.Flags().StringVarP(&runCandlesPath, "candles", "c", "", "path to candle CSV file (required)")
	runCmd.MarkFlagRequired("candles")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg := config.Default()
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	symbol := market.ResolveSymbol(runSymbol)
	candles, err := loadCandlesCSV(runCandlesPath, symbol)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles in %s", runCandlesPath)
	}

	pe := paper.NewEngine(broker.Account{
		Balance: cfg.Account.Balance,
		Equity:  cfg.Account.Balance,
	})
	pe.SetCandles(symbol, candles)

	// Quote from the last candle unless the config seeds one.
	last := candles[len(candles)-1]
	quote := market.Quote{Symbol: symbol, Bid: last.Close, Ask: last.Close, Time: last.OpenTime}
	for _, q := range cfg.Quotes {
		if market.ResolveSymbol(q.Symbol) == symbol {
			quote.Bid, quote.Ask = q.Bid, q.Ask
		}
	}
	pe.SetQuote(quote)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := pe.Connect(ctx); err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer pe.Disconnect()

	engine := reconcile.NewEngine(pe, journal.Nop{}, log)
	detector := sig.NewDetector(cfg.Detector, log)
	runner := reconcile.NewRunner(pe, detector, engine, log, []string{symbol}, time.Minute, len(candles))

	fmt.Printf("Evaluating %s over %d candles\n\n", symbol, len(candles))
	runner.RunOnce(ctx)

	acct, _ := pe.Account(ctx)
	positions, _ := pe.Positions(ctx, symbol)
	pending, _ := pe.PendingOrders(ctx, symbol)

	fmt.Printf("Account: balance $%.2f, equity $%.2f\n", acct.Balance, acct.Equity)
	if len(positions) == 0 && len(pending) == 0 {
		fmt.Println("No signal: flat, no orders placed")
		return nil
	}
	for _, p := range positions {
		fmt.Printf("Open position: %s %s %.2f @ %.5f (ticket %s)\n",
			p.Symbol, p.Side, p.Volume, p.EntryPrice, p.Ticket)
	}
	for _, o := range pending {
		fmt.Printf("Pending %s order: %s %.2f @ %.5f (ticket %s)\n",
			o.Kind, o.Side, o.Volume, o.Price, o.Ticket)
	}
	return nil
}

// loadCandlesCSV reads time,open,high,low,close rows. A non-numeric
// first row is treated as a header.
func loadCandlesCSV(path, symbol string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var out []market.Candle
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: need time,open,high,low,close", i+1)
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: bad time %q: %w", i+1, row[0], err)
		}

		var vals [4]float64
		for j := 0; j < 4; j++ {
			vals[j], err = strconv.ParseFloat(row[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad number %q: %w", i+1, row[j+1], err)
			}
		}
		out = append(out, market.Candle{
			Symbol:   symbol,
			OpenTime: ts,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
		})
	}
	return out, nil
}

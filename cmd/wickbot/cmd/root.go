package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wickbot",
	Short: "An automated single-asset trading bot driven by candle wick signals",
	Long: `Wickbot watches OHLC candles for one or more symbols, detects wick
signals around an EMA gap, and reconciles the desired position against
the broker with a close-and-reverse order state machine.

It provides:
  - A polling evaluation loop over broker candles
  - An HTTP webhook ingress for externally generated trade signals
  - Volume sizing from account balance and instrument metadata
  - A netting paper broker for dry runs
  - Trade journaling to SQLite or CSV

Complete documentation is available at https://github.com/rustyeddy/wickbot`,
}

var debug bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newLogger builds the process logger. A .env file next to the binary
// is honored before the environment is read.
func newLogger() zerolog.Logger {
	_ = godotenv.Load()

	level := zerolog.InfoLevel
	if debug || os.Getenv("WICKBOT_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	var out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if os.Getenv("WICKBOT_LOG_JSON") != "" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Command signals runs the composite indicator engine once for a symbol and
// prints the signal report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/config"
	"github.com/irfndi/celebrum-signals/internal/database"
	"github.com/irfndi/celebrum-signals/internal/labeling"
	"github.com/irfndi/celebrum-signals/internal/logging"
	"github.com/irfndi/celebrum-signals/internal/report"
	"github.com/irfndi/celebrum-signals/internal/services"
)

type options struct {
	csvPath    string
	symbol     string
	labels     bool
	importOnly bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "signals: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("signals", pflag.ContinueOnError)
	var opts options
	flags.StringVar(&opts.csvPath, "csv", "", "read candles from a CSV file instead of Postgres")
	flags.StringVar(&opts.symbol, "symbol", "", "trading pair, defaults to the first configured symbol")
	flags.BoolVar(&opts.labels, "labels", false, "print labeled BUY/SELL rows for classifier training")
	flags.BoolVar(&opts.importOnly, "import", false, "upsert the CSV candles into Postgres and exit")
	flags.String("timeframe", "1h", "candle timeframe")
	flags.Int("rows", 20, "number of recent rows in the report")
	flags.Int("lookback", 20, "engine lookback window")
	flags.Int("hold-period", labeling.DefaultHoldPeriod, "candles ahead used to label a signal")
	flags.Float64("profit-threshold", labeling.DefaultProfitThreshold, "minimum forward return for a true label")
	flags.String("log-level", "warn", "log level")
	if err := flags.Parse(args); err != nil {
		return err
	}

	for key, name := range map[string]string{
		"timeframe":                 "timeframe",
		"report.rows":               "rows",
		"engine.lookback":           "lookback",
		"labeling.hold_period":      "hold-period",
		"labeling.profit_threshold": "profit-threshold",
		"log_level":                 "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	logger.SetOutput(os.Stderr)

	symbol := opts.symbol
	if symbol == "" && len(cfg.Symbols) > 0 {
		symbol = cfg.Symbols[0]
	}
	if symbol == "" {
		return errors.New("--symbol is required")
	}

	if opts.importOnly {
		return importCSV(ctx, cfg, opts.csvPath, symbol, logger, out)
	}

	var source services.CandleSource
	if opts.csvPath != "" {
		candles, err := loadCSV(opts.csvPath, symbol, cfg.Timeframe)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", opts.csvPath, err)
		}
		source = &csvSource{candles: candles}
	} else {
		db, err := database.NewPostgresConnection(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		source = database.NewCandleRepository(db.Pool)
	}

	service := services.NewSignalService(source, nil, nil, nil, services.NewSignalServiceConfig(cfg), logger)
	frame, err := service.Frame(ctx, symbol, cfg.Timeframe)
	if err != nil {
		return err
	}

	summary := report.Summarize(frame, cfg.Report.StrongThreshold)
	if err := report.Render(out, symbol, cfg.Timeframe, frame, summary, cfg.Report.Rows); err != nil {
		return err
	}

	if opts.labels {
		return renderLabels(out, frame, cfg.Labeling)
	}
	return nil
}

func importCSV(ctx context.Context, cfg *config.Config, path, symbol string, logger *logrus.Logger, out io.Writer) error {
	if path == "" {
		return errors.New("--import requires --csv")
	}
	candles, err := loadCSV(path, symbol, cfg.Timeframe)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	db, err := database.NewPostgresConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := database.NewCandleRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	inserted, err := repo.InsertCandles(ctx, candles)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Imported %d candles for %s (%s)\n", inserted, symbol, cfg.Timeframe)
	return err
}

func renderLabels(out io.Writer, frame *composite.Frame, cfg config.LabelingConfig) error {
	labeled, err := labeling.LabelSignals(frame, cfg.HoldPeriod, cfg.ProfitThreshold)
	if err != nil {
		return err
	}
	stats := labeling.LabelStats(labeled)

	fmt.Fprintf(out, "\nLABELED SIGNALS (hold %d candles, threshold %.4f)\n", cfg.HoldPeriod, cfg.ProfitThreshold)
	fmt.Fprintf(out, "Total: %d  True: %d  False: %d\n\n", stats.Total, stats.True, stats.False)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "open_time\tsignal\tclose\tfuture_close\treturn_pct\tlabel")
	for _, l := range labeled {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%d\n",
			l.OpenTime.Format("2006-01-02 15:04:05"), l.Signal, l.Close, l.FutureClose, l.ReturnPct*100, l.Label)
	}
	return tw.Flush()
}

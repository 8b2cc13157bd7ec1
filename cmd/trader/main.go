package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/minsukim/autotrader/broker"
	"github.com/minsukim/autotrader/calendar"
	"github.com/minsukim/autotrader/config"
	"github.com/minsukim/autotrader/engine"
	"github.com/minsukim/autotrader/executor"
	"github.com/minsukim/autotrader/history"
	"github.com/minsukim/autotrader/logger"
	"github.com/minsukim/autotrader/notify"
	"github.com/minsukim/autotrader/settings"
	"github.com/minsukim/autotrader/store"
	"github.com/minsukim/autotrader/types"
)

var (
	flagPaper        bool
	flagMarkets      string
	flagSettingsFile string
	flagSheetID      string
	flagStateDir     string
	flagJournal      string
	flagMetricsAddr  string
	flagInterval     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Systematic MA-crossover equity trader for the KOR and USA sessions",
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagPaper, "paper", true, "use the paper-trading endpoint")
	rootCmd.Flags().StringVar(&flagMarkets, "markets", "KOR,USA", "comma-separated markets to trade")
	rootCmd.Flags().StringVar(&flagSettingsFile, "settings", "settings.yaml", "path to the YAML settings file")
	rootCmd.Flags().StringVar(&flagSheetID, "sheet-id", "", "Google spreadsheet ID (overrides --settings)")
	rootCmd.Flags().StringVar(&flagStateDir, "state-dir", "state", "directory for per-market state snapshots")
	rootCmd.Flags().StringVar(&flagJournal, "journal", "trades.csv", "path to the trade journal CSV")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", ":9090", "prometheus metrics listen address")
	rootCmd.Flags().DurationVar(&flagInterval, "interval", engine.DefaultPollInterval, "poll interval")
}

func run(cmd *cobra.Command, _ []string) error {
	config.LoadEnv(".env")

	log, err := logger.NewZapLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	profile, err := config.ResolveBrokerProfile(flagPaper)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var provider settings.Provider
	if flagSheetID != "" {
		srv, err := settings.SetupSheets(ctx)
		if err != nil {
			return err
		}
		provider = settings.NewSheetsProvider(srv, flagSheetID)
	} else {
		provider = settings.NewYAMLProvider(flagSettingsFile)
	}

	exec := executor.New(broker.NewRESTBroker(profile), log, profile.MinInterval)
	cal, err := calendar.New(exec)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Nop{}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		notifier = notify.NewWebhookNotifier(url, log)
	}
	journal := history.NewCSVStore(flagJournal)

	var engines []*engine.Engine
	for _, name := range strings.Split(flagMarkets, ",") {
		var adapter engine.MarketAdapter
		switch types.Market(strings.ToUpper(strings.TrimSpace(name))) {
		case types.MarketKOR:
			adapter = engine.NewKORAdapter()
		case types.MarketUSA:
			adapter = engine.NewUSAAdapter()
		default:
			return fmt.Errorf("unknown market %q", name)
		}
		statePath := filepath.Join(flagStateDir, strings.ToLower(string(adapter.Market()))+"_state.json")
		eng, err := engine.New(adapter, cal, exec, provider, notifier, journal, store.New(statePath), log)
		if err != nil {
			return err
		}
		engines = append(engines, eng)
	}
	if len(engines) == 0 {
		return fmt.Errorf("no markets configured")
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
			log.Warn("metrics server stopped", logger.Err(err))
		}
	}()

	mode := "live"
	if profile.Paper {
		mode = "paper"
	}
	log.Info("trader started",
		logger.String("mode", mode),
		logger.String("markets", flagMarkets),
		logger.String("interval", flagInterval.String()),
	)
	engine.NewRunner(engines, log, notifier, flagInterval).Run(ctx)
	log.Info("trader stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

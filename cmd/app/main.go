package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StratTick/internal/di"
	"StratTick/internal/usecase"
	"StratTick/pkg/config"
	"StratTick/pkg/util"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "strattick",
		Short: "Tick-aligned strategy orchestration",
		Long: `strattick runs registered trading strategies at every timeframe
boundary against a shared candle store and publishes one batch of
recommendations per cycle.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dueCmd())
	rootCmd.AddCommand(runOnceCmd())
	rootCmd.AddCommand(backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, market data sync and HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run()
}

func dueCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the strategies due at an instant",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			instant, err := parseInstant(at, cfg)
			if err != nil {
				return err
			}

			holder, cleanup, err := di.InitializeRegistry(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			due, err := usecase.Due(instant, holder.Current().Specs())
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"at": instant, "strategies": due})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant (RFC3339 or unix seconds); defaults to the last base boundary")
	return cmd
}

func runOnceCmd() *cobra.Command {
	var (
		at      string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run a single cycle and print its batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			instant, err := parseInstant(at, cfg)
			if err != nil {
				return err
			}

			cycle, cleanup, err := di.InitializeCycle(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			batch, err := cycle.Run(ctx, instant)
			if batch != nil {
				if perr := printJSON(batch); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant (RFC3339 or unix seconds); defaults to the last base boundary")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the cycle")
	return cmd
}

func backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Fill the candle store from the exchange REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			if cfg.Binance.RESTURL == "" {
				return fmt.Errorf("binance.rest_url is required for backfill")
			}

			sync, cleanup, err := di.InitializeCandleSync(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := sync.Backfill(ctx)
			fmt.Printf("backfilled %d candles for %s %s\n", n, cfg.Market.Symbol, cfg.Market.BaseTimeframe)
			return err
		},
	}
}

func parseInstant(at string, cfg *config.Config) (time.Time, error) {
	if at == "" {
		return util.FloorTo(time.Now(), cfg.BaseTimeframe().Duration()), nil
	}
	t, ok := util.ParseTime(at)
	if !ok {
		return time.Time{}, fmt.Errorf("cannot parse instant %q", at)
	}
	return t, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

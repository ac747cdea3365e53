package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felina/server-contract-tests/apitests"
	"github.com/felina/server-contract-tests/client"
	"github.com/felina/server-contract-tests/config"
	"github.com/felina/server-contract-tests/configswap"
	"github.com/felina/server-contract-tests/framework"
	"github.com/felina/server-contract-tests/logging"
	"github.com/felina/server-contract-tests/process"
	"github.com/felina/server-contract-tests/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errTestsFailed = errors.New("one or more tests failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err != errTestsFailed {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	rootCmd := &cobra.Command{
		Use:   "felina-contract-tests",
		Short: "Contract tests for the Felina API server",
		Long: `Runs the Felina API contract tests against a live server.

The server's test database configuration is swapped in, the test store is rebuilt from the
server's schema script, and the server is started and tested. The server is stopped and the
original configuration restored at the end of the run, including when it is interrupted.

Run from the root of the server's checkout, or set the paths in a configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runSuite(cmd.Context(), cfg)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"scenario and harness settings, JSON or YAML (default: "+config.DefaultScenarioFile+" if present)")
	addRunFlags(rootCmd.Flags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "restore-config",
		Short: "Restore the server configuration left swapped by an interrupted run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, nil)
			if err != nil {
				return err
			}
			logger := logging.New(false)
			defer func() { _ = logger.Sync() }()
			restored, err := configswap.Recover(swapSlots(cfg), logger)
			if err != nil {
				return err
			}
			if restored {
				fmt.Println("Original configuration restored")
			} else {
				fmt.Println("Nothing to restore")
			}
			return nil
		},
	})
	return rootCmd
}

// runSuite performs a whole run. Everything the run acquires is released before it returns,
// including when it is interrupted or panics.
func runSuite(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(cfg.Debug || cfg.DebugAll)
	defer func() { _ = logger.Sync() }()

	ctx, stopSignals := framework.CancelOnSignal(ctx, func(sig os.Signal) {
		logger.Warnf("Interrupted by %s, cleaning up", sig)
	})
	defer stopSignals()

	return withHarness(logging.Printf(logger), func(harness *framework.TestHarness) error {
		results, err := runScenario(ctx, cfg, harness, logger)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}
			return err
		}

		fmt.Println()
		framework.PrintResults(os.Stdout, results)
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		if !results.OK() {
			return errTestsFailed
		}
		return nil
	})
}

// withHarness calls fn with a new harness and closes the harness when fn returns or panics.
func withHarness(logger framework.Logger, fn func(*framework.TestHarness) error) (err error) {
	harness := framework.NewTestHarness(logger)
	defer func() {
		if closeErr := harness.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(harness)
}

// runScenario acquires every resource of the run, registering each with the harness as soon
// as it exists, and runs the tests. The caller closes the harness.
func runScenario(ctx context.Context, cfg *config.Config, harness *framework.TestHarness,
	logger *zap.SugaredLogger) (framework.Results, error) {
	swapper := configswap.New(swapSlots(cfg), logger)
	harness.Defer("configuration", swapper.Restore)
	if err := swapper.Activate(); err != nil {
		return framework.Results{}, err
	}

	if err := resetStore(ctx, cfg, logger); err != nil {
		return framework.Results{}, err
	}

	var output io.Writer
	if cfg.Server.Output != "" {
		f, err := os.OpenFile(cfg.Server.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return framework.Results{}, fmt.Errorf("opening server output file: %w", err)
		}
		harness.Defer("server output", f.Close)
		output = f
	}
	server, err := process.Start(ctx, process.Options{
		Command:     serverCommand(cfg.Server),
		Dir:         cfg.Server.Dir,
		ReadyMarker: cfg.Server.ReadyMarker,
		Timeout:     cfg.Server.StartupTimeout,
		Output:      output,
		Stderr:      output,
		Logger:      logger,
	})
	if err != nil {
		return framework.Results{}, err
	}
	harness.Defer("server", server.Stop)

	baseURL := cfg.Server.BaseURL()
	fmt.Printf("Testing server at path %s\n", baseURL)
	testLogger := &ConsoleTestLogger{
		DebugOutputOnFailure: cfg.Debug || cfg.DebugAll,
		DebugOutputOnSuccess: cfg.DebugAll,
	}
	c := client.New(baseURL, cfg.Server.RequestTimeout, logging.Printf(logger))
	return apitests.RunTestSuite(ctx, c, scenarioParams(cfg), testLogger), nil
}

// resetStore rebuilds the test store from the schema script, using the database settings
// that are now active.
func resetStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	settings, err := store.LoadSettings(cfg.Swap.Active)
	if err != nil {
		return err
	}
	resetter, err := store.Open(ctx, cfg.Store.Driver, settings, storeSchema(cfg), logger)
	if err != nil {
		return err
	}
	defer resetter.Close()

	report, err := resetter.Reset(ctx, cfg.Store.Script)
	if err != nil {
		return err
	}
	if !report.OK() {
		logger.Warnf("%d of %d schema statements failed", len(report.Failed), report.Executed+len(report.Failed))
	}
	if len(cfg.Store.VerifyTables) > 0 {
		return resetter.Verify(ctx, cfg.Store.VerifyTables)
	}
	return nil
}

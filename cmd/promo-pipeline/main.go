// main package for the promo-pipeline
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/promo-pipeline/internal/app"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/joho/godotenv"
)

const bootstrapLogFileName = "promo-pipeline-bootstrap.log"

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() {
		closeErr := bootstrapLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing bootstrap logger: %v\n", closeErr)
		}
	}()

	// 2. Secrets may live in a local .env file
	envErr := godotenv.Load()
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		bootstrapLog.Warn("Failed to read .env file: %v", envErr)
	}

	// 3. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 4. Initialize the run log
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, config.LogFileName)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 5. Wire the stages and run one batch
	application, err := app.New(ctx, cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to initialize pipeline: %v", err)

		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	defer func() {
		closeErr := application.Close()
		if closeErr != nil {
			finalLog.Warn("Failed to close application: %v", closeErr)
		}
	}()

	finalLog.System("Promo pipeline initialized with %s catalog, %s voice engine and %s assembly.",
		cfg.Catalog.Backend, cfg.Voice.Engine, cfg.Assembly.Mode)

	summary, err := application.Run(ctx)
	if err != nil {
		finalLog.Error("Run aborted after %d of %d items: %v", summary.Published, summary.Fetched, err)

		return err
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline exited with error: %v\n", err)
		os.Exit(1)
	}
}

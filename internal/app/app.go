// Package app wires the configured adapters into the pipeline driver.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/promo-pipeline/internal/artifact"
	"github.com/book-expert/promo-pipeline/internal/assembly"
	"github.com/book-expert/promo-pipeline/internal/catalog"
	"github.com/book-expert/promo-pipeline/internal/config"
	"github.com/book-expert/promo-pipeline/internal/core"
	"github.com/book-expert/promo-pipeline/internal/notify"
	"github.com/book-expert/promo-pipeline/internal/objectstore"
	"github.com/book-expert/promo-pipeline/internal/pipeline"
	"github.com/book-expert/promo-pipeline/internal/publish"
	"github.com/book-expert/promo-pipeline/internal/script"
	"github.com/book-expert/promo-pipeline/internal/voice"
	"github.com/nats-io/nats.go"
	"google.golang.org/api/option"
)

const natsClientName = "promo-pipeline"

// healthChecker is implemented by engines that can be health-checked before a run.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Application owns the driver and the connections it depends on.
type Application struct {
	driver         *pipeline.Driver
	layout         *artifact.Layout
	engine         core.SpeechEngine
	natsConnection *nats.Conn
	log            *logger.Logger
}

// New builds every stage from cfg. publishOpts are handed to the YouTube
// client after its own options.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, publishOpts ...option.ClientOption) (*Application, error) {
	searcher, err := NewSearcher(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	generator, err := script.New(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to create script generator: %w", err)
	}

	engine, err := NewSpeechEngine(cfg.Voice, log)
	if err != nil {
		return nil, err
	}

	assembler, err := assembly.New(cfg.Assembly)
	if err != nil {
		return nil, fmt.Errorf("failed to create video assembler: %w", err)
	}

	publisher, err := publish.New(ctx, cfg.Publish, publishOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	application := &Application{
		driver:         nil,
		layout:         artifact.NewLayout(cfg.Paths.WorkDir, cfg.Voice.FileName, cfg.Assembly.FileName),
		engine:         engine,
		natsConnection: nil,
		log:            log,
	}

	var (
		store    core.ObjectStore
		notifier core.OutcomeNotifier
	)

	if cfg.NATS.URL != "" {
		store, notifier, err = application.connectNATS(cfg.NATS)
		if err != nil {
			return nil, err
		}
	}

	application.driver = pipeline.New(pipeline.Deps{
		Catalog:    catalog.New(searcher, log),
		Scripts:    generator,
		Voice:      voice.NewSynthesizer(engine, store, log),
		Assembler:  assembler,
		Publisher:  publisher,
		Notifier:   notifier,
		Layout:     application.layout,
		Filter:     cfg.Catalog.Filter(),
		Visibility: cfg.Publish.Visibility,
		Log:        log,
	})

	return application, nil
}

// Run health-checks the speech engine when it supports it, then runs one batch.
func (a *Application) Run(ctx context.Context) (pipeline.Summary, error) {
	checker, ok := a.engine.(healthChecker)
	if ok {
		healthErr := checker.HealthCheck(ctx)
		if healthErr != nil {
			return pipeline.Summary{}, fmt.Errorf("speech service is not ready: %w", healthErr)
		}
	}

	a.log.Info("Artifacts for run %s go to %s", a.layout.RunID(), a.layout.RunDir())

	summary, err := a.driver.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("promo run %s failed: %w", a.layout.RunID(), err)
	}

	return summary, nil
}

// Close drains the NATS connection, if any.
func (a *Application) Close() error {
	if a.natsConnection == nil {
		return nil
	}

	drainErr := a.natsConnection.Drain()
	if drainErr != nil && !errors.Is(drainErr, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain nats connection: %w", drainErr)
	}

	return nil
}

func (a *Application) connectNATS(cfg config.NATSConfig) (core.ObjectStore, core.OutcomeNotifier, error) {
	natsConnection, err := nats.Connect(cfg.URL, nats.Name(natsClientName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}

	a.natsConnection = natsConnection

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.ArtifactBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to open artifact bucket: %w", err)
	}

	a.log.Info("Voiceovers are uploaded to object store bucket %s", store.Bucket())

	if cfg.OutcomeSubject == "" {
		return store, nil, nil
	}

	notifier, err := notify.NewNatsNotifier(natsConnection, cfg.OutcomeSubject)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create outcome notifier: %w", err)
	}

	return store, notifier, nil
}

// NewSearcher selects the catalog backend.
func NewSearcher(cfg config.CatalogConfig) (catalog.Searcher, error) {
	switch cfg.Backend {
	case config.BackendPAAPI:
		return catalog.NewPAAPIClient(cfg), nil
	case config.BackendHTML:
		return catalog.NewStorefrontScraper(cfg), nil
	case config.BackendFile:
		return catalog.NewFixtureSource(cfg.FixturePath), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownBackend, cfg.Backend)
	}
}

// NewSpeechEngine selects the speech engine.
func NewSpeechEngine(cfg config.VoiceConfig, log core.Logger) (core.SpeechEngine, error) {
	switch cfg.Engine {
	case config.EngineCommand:
		engine, err := voice.NewCommandEngine(cfg.BinaryPath, cfg.Args, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create speech engine: %w", err)
		}

		return engine, nil
	case config.EngineHTTP:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

		return voice.NewHTTPEngine(cfg.ServiceURL, cfg.Language, cfg.Temperature, timeout), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownEngine, cfg.Engine)
	}
}

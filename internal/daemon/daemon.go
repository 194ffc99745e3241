// Package daemon assembles the LabelSense service: provider, pipeline,
// session store, sweeper, and gateway.
package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labelsense/labelsense/internal/config"
	"github.com/labelsense/labelsense/internal/logger"
	"github.com/labelsense/labelsense/internal/metrics"
	"github.com/labelsense/labelsense/pkg/advisor"
	"github.com/labelsense/labelsense/pkg/analysis"
	"github.com/labelsense/labelsense/pkg/gateway"
	"github.com/labelsense/labelsense/pkg/store"
	"github.com/labelsense/labelsense/pkg/vision"
)

// Daemon owns every long-lived component of the service.
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	prompts       *analysis.PromptLibrary
	promptWatcher *analysis.PromptWatcher
	sessions      *store.MemoryStore
	sweeper       *store.Sweeper
	advisor       *advisor.Advisor
	gateway       *gateway.Server

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// Status represents daemon status
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
}

// New builds a daemon from configuration. Nothing is started yet.
func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	zl := lg.GetZerolog()
	m := metrics.New()

	factory := &vision.ProviderFactory{}
	provider, err := factory.NewProvider(vision.Credentials{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
	})
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	prompts := analysis.NewPromptLibrary(zl)
	var watcher *analysis.PromptWatcher
	if cfg.Pipeline.PromptDir != "" {
		if err := prompts.LoadOverrides(cfg.Pipeline.PromptDir); err != nil {
			zl.Warn().Err(err).Str("dir", cfg.Pipeline.PromptDir).Msg("failed to load prompt overrides")
		}
		watcher, err = analysis.NewPromptWatcher(prompts, cfg.Pipeline.PromptDir, zl)
		if err != nil {
			zl.Warn().Err(err).Msg("prompt override watching disabled")
			watcher = nil
		}
	}

	analyzer := analysis.NewAnalyzer(provider, prompts, analysis.Config{
		Model:             cfg.AI.Model,
		Temperature:       cfg.AI.Temperature,
		MaxTokens:         cfg.AI.MaxTokens,
		IngredientLimit:   cfg.Pipeline.IngredientLimit,
		AllowedMediaTypes: cfg.Pipeline.AllowedMediaTypes,
	}, zl, m)

	sessions := store.NewMemoryStore(store.Config{
		TTL:          cfg.Session.TTL,
		HistoryLimit: cfg.Session.HistoryLimit,
	}, zl, m)

	sweeper := store.NewSweeper(sessions, cfg.Session.SweepInterval, zl)

	adv := advisor.New(analyzer, sessions, zl, m)

	gw, err := gateway.NewServer(gateway.Config{
		Port:           cfg.Gateway.Port,
		MaxUploadBytes: cfg.Gateway.MaxUploadMB << 20,
		Service:        adv,
		Metrics:        m,
		Logger:         zl,
	})
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("failed to create gateway server: %w", err)
	}

	return &Daemon{
		config:        cfg,
		logger:        lg,
		metrics:       m,
		prompts:       prompts,
		promptWatcher: watcher,
		sessions:      sessions,
		sweeper:       sweeper,
		advisor:       adv,
		gateway:       gw,
	}, nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().
		Str("provider", d.config.AI.Provider).
		Str("model", d.config.AI.Model).
		Msg("Starting LabelSense daemon")

	if err := d.sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}

	if err := d.gateway.Start(); err != nil {
		return fmt.Errorf("failed to start gateway server: %w", err)
	}
	d.logger.Info().Int("port", d.config.Gateway.Port).Msg("Gateway server started")

	return nil
}

// Stop stops the daemon service
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping LabelSense daemon")

	if err := d.gateway.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop gateway server")
	}

	d.sweeper.Stop()

	if d.promptWatcher != nil {
		if err := d.promptWatcher.Stop(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop prompt watcher")
		}
	}

	if err := d.sessions.Close(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to close session store")
	}

	d.logger.Info().Msg("LabelSense daemon stopped")
	return d.logger.Close()
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}
	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}
	return status
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetAdvisor returns the advisor
func (d *Daemon) GetAdvisor() *advisor.Advisor {
	return d.advisor
}

package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"implied-inflation/internal/alerting"
	"implied-inflation/internal/config"
	"implied-inflation/internal/inflation"
	"implied-inflation/internal/scheduler"
	"implied-inflation/internal/service"
	"implied-inflation/internal/storage"
	"implied-inflation/internal/tesouro"
	"implied-inflation/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	client *tesouro.Client
	cache  *tesouro.Cache
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	logger = logger.With().Str("component", "app").Logger()
	userAgent := cfg.Tesouro.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	client := tesouro.NewClient(tesouro.ClientOptions{
		URL:       cfg.Tesouro.URL,
		Timeout:   cfg.Tesouro.RequestTimeout,
		UserAgent: userAgent,
	}, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		Out:    os.Stdout,
		client: client,
		cache:  tesouro.NewCache(client, cfg.Tesouro.CacheTTL, logger),
	}
}

func (a *App) newCalculator() *inflation.Calculator {
	return inflation.NewCalculator(a.Config.CalculatorOptions(), a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newService(sched *scheduler.Scheduler, store *storage.Store, notifier alerting.Notifier) *service.Service {
	var resultStore storage.ResultStore
	if store != nil {
		resultStore = store
	}
	return service.New(a.Config, sched, a.cache, a.newCalculator(), resultStore, notifier, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database, a.Config.App.Name)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, storage.ErrNotConfigured
	}
	return store, closeStore, nil
}

// Run executes the long-running daily refresh service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		Offset:       a.Config.Scheduler.Offset,
		Location:     a.Config.Location(),
		AlignToSlot:  a.Config.Scheduler.AlignToSlot,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(sched, store, a.newNotifier())

	a.Logger.Info().Msg("starting refresh service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("refresh service stopped")
	return nil
}

// ComputeOptions configure the compute command.
type ComputeOptions struct {
	// ReferenceDate defaults to the latest date in the table.
	ReferenceDate *time.Time
	Target        *time.Time

	CSVPath   string
	XLSXPath  string
	PNGPath   string
	AuditPath string
	RawPath   string

	Save   bool
	Notify bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	ReferenceDate *time.Time
	Limit         int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From    time.Time
	To      time.Time
	DryRun  bool
	Workers int
}

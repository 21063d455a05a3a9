package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"WorkshopScheduler/internal/allocator"
	"WorkshopScheduler/internal/config"
	"WorkshopScheduler/internal/formatter"
	"WorkshopScheduler/internal/infrastructure/agenda"
	"WorkshopScheduler/internal/infrastructure/archive"
	"WorkshopScheduler/internal/infrastructure/events"
	"WorkshopScheduler/internal/infrastructure/httpserver"
	"WorkshopScheduler/internal/infrastructure/scheduler"
	"WorkshopScheduler/internal/infrastructure/storage"
	"WorkshopScheduler/internal/infrastructure/telegram"
	"WorkshopScheduler/internal/infrastructure/trello"
	"WorkshopScheduler/internal/logging"
	"WorkshopScheduler/internal/normalizer"
	"WorkshopScheduler/internal/ports"
	"WorkshopScheduler/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	formatter *formatter.Formatter
	store     ports.ProposalStore
	pipeline  *usecase.Pipeline
	listener  *usecase.Listener
	scheduler *usecase.Scheduler
	server    *httpserver.Server
	closers   []io.Closer
}

// New builds every adapter the configuration enables. Call Close when done.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		formatter: formatter.New(cfg.Notifications.Telegram.ApprovalKeyword),
	}

	priorities, err := cfg.Kanban.Priorities()
	if err != nil {
		return nil, fmt.Errorf("kanban.priorityLabels: %w", err)
	}

	var db *sql.DB
	if cfg.Proposals.Backend == config.BackendPostgres || cfg.Storage.Backend == config.BackendPostgres {
		if db, err = openDatabase(ctx, cfg.Database.DSN); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
	}

	switch cfg.Proposals.Backend {
	case config.BackendPostgres:
		a.store = storage.NewPostgresProposalStore(db)
	default:
		a.store = storage.NewFileStore(cfg.Proposals.Dir)
	}

	var sink ports.ScheduleSink
	switch cfg.Storage.Backend {
	case config.BackendHTTP:
		sink = agenda.NewClient(cfg.Storage.Endpoint, cfg.Storage.APIKey)
	default:
		sink = storage.NewPostgresSink(db)
	}

	var chat ports.ChatClient
	tg := cfg.Notifications.Telegram
	if tg.BotToken != "" {
		chat = telegram.NewNotifier(tg.BotToken, tg.ChatID, tg.PollTimeout, telegram.WithBaseURL(tg.BaseURL))
	}

	source := trello.NewClient(trello.Config{
		BaseURL:       cfg.Kanban.BaseURL,
		APIKey:        cfg.Kanban.APIKey,
		Token:         cfg.Kanban.Token,
		BoardID:       cfg.Kanban.BoardID,
		EligibleLists: cfg.Kanban.EligibleLists,
	}, nil, baseLogger.With("component", "trello"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source: source,
		Normalizer: normalizer.Options{
			CategoryField:   cfg.Kanban.CategoryField,
			DefaultCategory: cfg.Kanban.DefaultCategory,
			PriorityLabels:  priorities,
		},
		Allocator: allocator.New(allocator.Config{
			Roster:          cfg.Schedule.Roster,
			WeekdaySlots:    cfg.Schedule.WeekdaySlots,
			SaturdaySlots:   cfg.Schedule.SaturdaySlots,
			OrderByPriority: cfg.Schedule.OrderByPriority,
		}),
		Store:     a.store,
		Chat:      chat,
		Formatter: a.formatter,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	deps := usecase.ListenerDeps{
		Chat:        chat,
		Store:       a.store,
		Sink:        sink,
		Formatter:   a.formatter,
		Logger:      baseLogger.With("component", "listener"),
		ChatID:      tg.ChatID,
		PollWait:    tg.PollTimeout,
		PollBackoff: tg.PollBackoff,

		AnnounceLifecycle: !tg.SilentLifecycle,
	}

	if len(cfg.Events.Kafka.Brokers) > 0 {
		publisher, err := events.NewPublisher(events.Config{
			Brokers: cfg.Events.Kafka.Brokers,
			Topic:   cfg.Events.Kafka.Topic,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, publisher)
		deps.Events = publisher
	}

	if cfg.Archive.S3.Bucket != "" {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive.S3.Bucket, cfg.Archive.S3.Prefix, cfg.Archive.S3.Region)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		deps.Archiver = archiver
	}

	a.listener = usecase.NewListener(deps, tg.ApprovalKeyword)

	if cfg.Scheduler.Enabled {
		triggers, err := buildTriggers(cfg.Scheduler.Triggers)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		driver := scheduler.NewWeeklyScheduler(triggers, cfg.Scheduler.Location())
		a.scheduler = usecase.NewScheduler(driver, a.pipeline, baseLogger.With("component", "scheduler"))
	}

	if cfg.HTTP.Addr != "" {
		a.server = httpserver.New(a.store, a.formatter, baseLogger.With("component", "http"))
	}

	return a, nil
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := storage.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func buildTriggers(cfg []config.TriggerConfig) ([]scheduler.Trigger, error) {
	var out []scheduler.Trigger
	for i, t := range cfg {
		days, hour, minute, err := t.Parse()
		if err != nil {
			return nil, fmt.Errorf("scheduler.triggers[%d]: %w", i, err)
		}
		for _, day := range days {
			out = append(out, scheduler.Trigger{Day: day, Hour: hour, Minute: minute})
		}
	}
	return out, nil
}

// Suggest runs one generation for date.
func (a *Application) Suggest(ctx context.Context, date time.Time) (usecase.SuggestResult, error) {
	return a.pipeline.Suggest(ctx, date)
}

// NextTargetDate is the date a run started now would plan, in the scheduler timezone.
func (a *Application) NextTargetDate(now time.Time) time.Time {
	return usecase.NextTargetDate(now.In(a.cfg.Scheduler.Location()))
}

// Show renders the stored proposal for date the way it is sent to the chat.
func (a *Application) Show(ctx context.Context, date time.Time) (string, error) {
	p, err := a.store.Load(ctx, date)
	if err != nil {
		return "", err
	}
	return a.formatter.RenderProposal(p), nil
}

// Listen runs the approval listener, plus the scheduler and status API when enabled,
// until ctx is cancelled or one of them fails.
func (a *Application) Listen(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return a.scheduler.Stop(stopCtx)
		})
	}

	g.Go(func() error {
		return a.listener.Run(ctx)
	})

	if a.server != nil {
		srv := &http.Server{
			Addr:              a.cfg.HTTP.Addr,
			Handler:           a.server.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			a.logger.Info("status api listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// Close releases database connections and message writers.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"WorkshopScheduler/internal/app"
	"WorkshopScheduler/internal/config"
	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/logging"
)

type flags struct {
	configPath string
	logLevel   string
	logFile    string
	date       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		f         flags
		cfg       config.Config
		logger    *slog.Logger
		logCloser io.Closer
	)

	cmd := &cli.Command{
		Name:      "workshopscheduler",
		Usage:     "Plan daily workshop schedules from a Trello board and approve them over Telegram",
		UsageText: "workshopscheduler [global options] command [command options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file",
				Sources:     cli.EnvVars("WORKSHOP_SCHEDULER_CONFIG"),
				Destination: &f.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("WORKSHOP_SCHEDULER_LOG_LEVEL"),
				Destination: &f.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "also write logs to this rotating file",
				Sources:     cli.EnvVars("WORKSHOP_SCHEDULER_LOG_FILE"),
				Destination: &f.logFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			if cfg, err = config.Load(f.configPath); err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if f.logLevel != "" {
				cfg.Logging.Level = f.logLevel
			}
			if f.logFile != "" {
				cfg.Logging.File = f.logFile
			}

			logger, logCloser, err = logging.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "suggest",
				Usage:     "Generate, store and send the proposal for one day",
				UsageText: "workshopscheduler suggest [--date YYYY-MM-DD]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "date",
						Usage:       "target day (defaults to the next working day)",
						Destination: &f.date,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := cfg.Validate(); err != nil {
						return err
					}
					application, err := app.New(ctx, cfg, logger)
					if err != nil {
						return err
					}
					defer application.Close()

					date := application.NextTargetDate(time.Now())
					if f.date != "" {
						if date, err = domain.ParseDate(f.date); err != nil {
							return err
						}
					}

					result, err := application.Suggest(ctx, date)
					if err != nil {
						return err
					}
					fmt.Printf("proposal %s for %s: %d assigned, %d left over, %d rejected\n",
						result.Proposal.ID, domain.DateKey(date),
						result.Proposal.AssignmentCount(), len(result.Leftover), len(result.Rejected))
					return nil
				},
			},
			{
				Name:      "listen",
				Usage:     "Process approval commands, and run the scheduler and status API when enabled",
				UsageText: "workshopscheduler listen",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := cfg.ValidateListener(); err != nil {
						return err
					}
					application, err := app.New(ctx, cfg, logger)
					if err != nil {
						return err
					}
					defer application.Close()

					logger.Info("listener started", "keyword", cfg.Notifications.Telegram.ApprovalKeyword)
					return application.Listen(ctx)
				},
			},
			{
				Name:      "show",
				Usage:     "Print the stored proposal for a day",
				UsageText: "workshopscheduler show --date YYYY-MM-DD",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "date",
						Usage:       "target day",
						Required:    true,
						Destination: &f.date,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					date, err := domain.ParseDate(f.date)
					if err != nil {
						return err
					}
					application, err := app.New(ctx, cfg, logger)
					if err != nil {
						return err
					}
					defer application.Close()

					text, err := application.Show(ctx, date)
					if errors.Is(err, domain.ErrNotFound) {
						return fmt.Errorf("no proposal stored for %s", domain.DateKey(date))
					}
					if err != nil {
						return err
					}
					fmt.Println(text)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Check the configuration and exit",
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := cfg.ValidateListener(); err != nil {
						return err
					}
					fmt.Println("configuration ok")
					return nil
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		if logger != nil {
			logger.Error("command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

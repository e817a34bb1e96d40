package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Black-And-White-Club/pinfall-import/app"
	"github.com/Black-And-White-Club/pinfall-import/app/eventbus"
	"github.com/Black-And-White-Club/pinfall-import/app/modules/classifica"
	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificadomain "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/domain"
	classificaevents "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/events"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/Black-And-White-Club/pinfall-import/internal/db/bundb"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "importer",
		Usage: "import bowling tournament results (classifiche)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file", EnvVars: []string{"CONFIG_PATH"}},
		},
		Commands: []*cli.Command{
			serveCommand(),
			previewCommand(),
			commitCommand(),
			tournamentCommand(),
			resultsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Usage: "results page to fetch"},
		&cli.StringFlag{Name: "file", Usage: "local classifica (html, csv, xlsx or text)"},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, event consumer and job queue",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Value: true, Usage: "apply database migrations on startup"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, err := setup(c)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, logger, c.Bool("migrate"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) error {
	importer, err := app.NewApp(ctx, cfg, logger, app.Options{Migrate: migrate})
	if err != nil {
		return err
	}
	return importer.Start(ctx)
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "parse a classifica and print the proposed matches",
		Flags: sourceFlags(),
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc classificaservice.Service) error {
				src, err := sourceFromFlags(c)
				if err != nil {
					return err
				}
				preview, err := svc.Preview(ctx, classificaservice.PreviewRequest{Source: src})
				if err != nil {
					return err
				}
				return printJSON(preview)
			})
		},
	}
}

func commitCommand() *cli.Command {
	return &cli.Command{
		Name:  "commit",
		Usage: "replace a tournament's results with a classifica",
		Flags: append(sourceFlags(),
			&cli.StringFlag{Name: "tournament", Required: true, Usage: "tournament id"},
			&cli.StringFlag{Name: "overrides", Usage: "JSON file mapping scraped names to player ids"},
			&cli.BoolFlag{Name: "async", Usage: "publish a commit request instead of committing inline"},
		),
		Action: func(c *cli.Context) error {
			src, err := sourceFromFlags(c)
			if err != nil {
				return err
			}
			overrides, err := readOverrides(c.String("overrides"))
			if err != nil {
				return err
			}

			if c.Bool("async") {
				return requestCommit(c, classificaevents.CommitRequestedPayloadV1{
					Source:       src,
					TournamentID: c.String("tournament"),
					Overrides:    overrides,
				})
			}

			return withService(c, func(ctx context.Context, svc classificaservice.Service) error {
				result, err := svc.Commit(ctx, classificaservice.CommitRequest{
					Source:       src,
					TournamentID: c.String("tournament"),
					Overrides:    overrides,
				})
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}

func tournamentCommand() *cli.Command {
	return &cli.Command{
		Name:  "tournament",
		Usage: "manage import targets",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a tournament",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.TimestampFlag{Name: "date", Layout: "2006-01-02", Usage: "start date (YYYY-MM-DD)"},
				},
				Action: func(c *cli.Context) error {
					return withService(c, func(ctx context.Context, svc classificaservice.Service) error {
						info, err := svc.CreateTournament(ctx, classificaservice.CreateTournamentRequest{
							Name:      c.String("name"),
							StartDate: c.Timestamp("date"),
						})
						if err != nil {
							return err
						}
						return printJSON(info)
					})
				},
			},
		},
	}
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "print a tournament's committed results",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tournament", Required: true, Usage: "tournament id"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc classificaservice.Service) error {
				records, err := svc.GetResults(ctx, c.String("tournament"))
				if err != nil {
					return err
				}
				return printJSON(records)
			})
		},
	}
}

func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, observability.NewLogger(cfg.Observability, nil), nil
}

// withService runs fn against a service backed by the configured database.
func withService(c *cli.Context, fn func(ctx context.Context, svc classificaservice.Service) error) error {
	ctx := c.Context
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	db, err := bundb.Open(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg.Queue.Enabled = false
	module, err := classifica.NewModule(ctx, classifica.Deps{Config: cfg, Logger: logger, DB: db})
	if err != nil {
		return err
	}
	defer module.Close()

	return fn(ctx, module.Service)
}

// requestCommit publishes a CommitRequestedV1 event for a running importer.
func requestCommit(c *cli.Context, payload classificaevents.CommitRequestedPayloadV1) error {
	ctx := c.Context
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if cfg.NATS.URL == "" {
		return errors.New("--async requires nats.url")
	}

	bus, err := eventbus.New(ctx, cfg.NATS, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	correlationID := watermill.NewUUID()
	ctx = observability.WithCorrelationID(ctx, correlationID)
	if err := classificaevents.NewPublisher(bus.Publisher).PublishCommitRequested(ctx, payload); err != nil {
		return err
	}
	return printJSON(map[string]string{"status": "requested", "correlation_id": correlationID})
}

func sourceFromFlags(c *cli.Context) (classificadomain.Source, error) {
	url, file := c.String("url"), c.String("file")
	switch {
	case url != "" && file != "":
		return classificadomain.Source{}, errors.New("use either --url or --file")
	case url != "":
		return classificadomain.Source{URL: url}, nil
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return classificadomain.Source{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if strings.EqualFold(filepath.Ext(file), ".txt") {
			return classificadomain.Source{Text: string(content)}, nil
		}
		return classificadomain.Source{FileName: filepath.Base(file), Content: content}, nil
	default:
		return classificadomain.Source{}, errors.New("one of --url or --file is required")
	}
}

func readOverrides(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}
	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}
	return overrides, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

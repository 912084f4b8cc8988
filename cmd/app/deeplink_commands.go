package main

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/easymo/deeplinks/cmd/app/commands"
	"github.com/easymo/deeplinks/internal/app"
	"github.com/easymo/deeplinks/internal/config"
	"github.com/easymo/deeplinks/internal/deeplink/http/dto"
)

func cleanupFlags(subject string) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "days",
			Aliases:  []string{"d"},
			Required: true,
			Usage:    "Delete " + subject + " older than this many days",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Value:   false,
			Usage:   "Show how many " + subject + " would be deleted without deleting",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "text",
			Usage:   "Output format: 'text' or 'json'",
		},
	}
}

func getDeeplinkCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "issue-deeplink",
			Usage: "Issue a deep link for a flow",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "flow",
					Required: true,
					Usage:    "Flow name (insurance_attach, basket_open or generate_qr)",
				},
				&cli.StringFlag{
					Name:    "payload",
					Aliases: []string{"p"},
					Value:   "{}",
					Usage:   "Flow payload as a JSON object",
				},
				&cli.StringFlag{
					Name:  "msisdn",
					Usage: "Bind the link to this E.164 phone number",
				},
				&cli.IntFlag{
					Name:  "ttl-minutes",
					Usage: "Link lifetime in minutes (defaults to DEEPLINK_DEFAULT_TTL_MINUTES)",
				},
				&cli.BoolFlag{
					Name:  "multi-use",
					Usage: "Allow the link to be activated more than once",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				issueUseCase, err := container.IssueUseCase()
				if err != nil {
					return err
				}

				createdBy := "cli"
				request := &dto.IssueRequest{
					Flow:      cmd.String("flow"),
					Payload:   json.RawMessage(cmd.String("payload")),
					MultiUse:  cmd.Bool("multi-use"),
					CreatedBy: &createdBy,
				}
				if cmd.IsSet("msisdn") {
					msisdn := cmd.String("msisdn")
					request.MSISDNE164 = &msisdn
				}
				if cmd.IsSet("ttl-minutes") {
					ttl := int(cmd.Int("ttl-minutes"))
					request.TTLMinutes = &ttl
				}

				return commands.RunIssueDeeplink(
					ctx,
					issueUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					request,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-expired-deeplinks",
			Usage: "Delete deep links that expired more than the specified days ago",
			Flags: cleanupFlags("expired deep links"),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				maintenanceUseCase, err := container.MaintenanceUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanExpiredDeeplinks(
					ctx,
					maintenanceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-deeplink-events",
			Usage: "Delete deep-link audit events older than specified days",
			Flags: cleanupFlags("events"),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				maintenanceUseCase, err := container.MaintenanceUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanDeeplinkEvents(
					ctx,
					maintenanceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					int(cmd.Int("days")),
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-rate-limit-buckets",
			Usage: "Delete expired rate-limit buckets (RATE_LIMIT_STORE=database only)",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				maintenanceUseCase, err := container.MaintenanceUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanRateLimitBuckets(
					ctx,
					maintenanceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}

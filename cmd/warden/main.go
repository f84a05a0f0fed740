package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/guildwarden/warden/platform/discord"
	"github.com/guildwarden/warden/restart"
	"github.com/guildwarden/warden/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "automod and case tracking daemon for discord servers",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"WARDEN_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format: text or json",
			EnvVars: []string{"WARDEN_LOG_FMT", "LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "sqlite or postgres database holding the case ledger and warning counts",
			Value:   "sqlite://data/warden/warden.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis for rate windows and redelivery de-duplication; in-process memory when unset",
			EnvVars: []string{"WARDEN_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "warning-store",
			Usage:   "where warning counts are kept: sql or redis",
			Value:   "sql",
			EnvVars: []string{"WARDEN_WARNING_STORE"},
		},
	}

	app.Before = func(cctx *cli.Context) error {
		_, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		return err
	}

	app.Commands = []*cli.Command{
		runCmd,
		casesCmd,
		warningsCmd,
		hashCredentialCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to discord and moderate",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "bot token",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "command prefix",
			Value:   discord.DefaultPrefix,
			EnvVars: []string{"PREFIX", "WARDEN_PREFIX"},
		},
		&cli.BoolFlag{
			Name:    "db-tracing",
			Usage:   "trace database queries (requires OTEL_EXPORTER_OTLP_ENDPOINT)",
			EnvVars: []string{"WARDEN_DB_TRACING"},
		},
		&cli.DurationFlag{
			Name:    "seen-ttl",
			Usage:   "how long a processed message id is remembered for redelivery de-duplication",
			Value:   time.Hour,
			EnvVars: []string{"WARDEN_SEEN_TTL"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "full URL of slack webhook for new case notifications",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "kafka brokers to publish case events to",
			EnvVars: []string{"WARDEN_KAFKA_BROKERS"},
		},
		&cli.StringFlag{
			Name:    "kafka-topic",
			Value:   "warden-cases",
			EnvVars: []string{"WARDEN_KAFKA_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "system-id",
			Usage:   "actor recorded on automatic cases",
			Value:   "automod",
			EnvVars: []string{"WARDEN_SYSTEM_ID"},
		},
		&cli.StringSliceFlag{
			Name:    "moderators",
			Usage:   "user ids which receive appeals by direct message",
			EnvVars: []string{"WARDEN_MODERATORS"},
		},
		&cli.Float64Flag{
			Name:    "action-rate-limit",
			Usage:   "max outbound moderation actions per second (0 for unlimited)",
			Value:   20,
			EnvVars: []string{"WARDEN_ACTION_RATE_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "action-timeout",
			Usage:   "bound on each outbound moderation action",
			Value:   10 * time.Second,
			EnvVars: []string{"WARDEN_ACTION_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "rate-sweep-interval",
			Usage:   "how often idle in-memory rate windows are dropped",
			Value:   time.Minute,
			EnvVars: []string{"WARDEN_RATE_SWEEP_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "restart-credentials",
			Usage:   "YAML file of per-actor bcrypt credentials; remote restart is disabled when unset",
			EnvVars: []string{"WARDEN_RESTART_CREDENTIALS"},
		},
		&cli.StringFlag{
			Name:    "restart-audit-log",
			Value:   "data/warden/restart.log",
			EnvVars: []string{"WARDEN_RESTART_AUDIT_LOG"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.Default()
		buildInfo.WithLabelValues(versioninfo.Short()).Set(1)

		ctx, cancel := context.WithCancel(cctx.Context)
		defer cancel()
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownOTEL, err := configOTEL(ctx, "warden")
		if err != nil {
			return err
		}
		defer shutdownOTEL()

		srv, err := NewServer(Config{
			Logger:           logger,
			DatabaseURL:      cctx.String("database-url"),
			MaxDBConnections: cctx.Int("max-db-connections"),
			DBTracing:        cctx.Bool("db-tracing"),
			RedisURL:         cctx.String("redis-url"),
			WarningStore:     cctx.String("warning-store"),
			SlackWebhookURL:  cctx.String("slack-webhook-url"),
			KafkaBrokers:     cctx.StringSlice("kafka-brokers"),
			KafkaTopic:       cctx.String("kafka-topic"),
			SystemID:         cctx.String("system-id"),
			Moderators:       cctx.StringSlice("moderators"),
			ActionRateLimit:  cctx.Float64("action-rate-limit"),
			ActionTimeout:    cctx.Duration("action-timeout"),
			SeenTTL:          cctx.Duration("seen-ttl"),
		})
		if err != nil {
			return err
		}
		defer srv.Close()

		session, err := discord.NewSession(cctx.String("discord-token"))
		if err != nil {
			return err
		}
		srv.engine.Platform = discord.NewPlatform(session)

		router := &discord.Router{
			Logger: logger,
			Engine: srv.engine,
			Prefix: cctx.String("prefix"),
		}
		sup := restart.NewExitSupervisor(cancel)
		if credPath := cctx.String("restart-credentials"); credPath != "" {
			creds, err := restart.LoadCredentials(credPath)
			if err != nil {
				return err
			}
			audit, err := restart.OpenAuditLog(cctx.String("restart-audit-log"))
			if err != nil {
				return err
			}
			defer audit.Close()
			router.Gate = restart.NewGate(logger, creds, audit, sup)
			logger.Info("remote restart enabled", "actors", creds.Len())
		}

		handler := &discord.Handler{
			Logger: logger,
			Engine: srv.engine,
			Router: router,
		}

		eg, egctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return srv.RunMetrics(egctx, cctx.String("metrics-listen"))
		})
		eg.Go(func() error {
			return srv.RunSweeper(egctx, cctx.Duration("rate-sweep-interval"))
		})
		eg.Go(func() error {
			if err := handler.Run(egctx, session); err != nil {
				return err
			}
			// the gateway only stops on shutdown; take everything else down with it
			cancel()
			return nil
		})
		if err := eg.Wait(); err != nil {
			return fmt.Errorf("failed to run automod service: %w", err)
		}

		if requested, actor := sup.Requested(); requested {
			restartRequests.Inc()
			logger.Info("exiting for supervised restart", "actor", actor)
			return cli.Exit("restart requested", restart.ExitCodeRestart)
		}
		return nil
	},
}

var casesCmd = &cli.Command{
	Name:  "cases",
	Usage: "inspect the case ledger",
	Subcommands: []*cli.Command{
		{
			Name:      "list",
			Usage:     "list all cases for a user",
			ArgsUsage: "<user-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "action",
					Usage: "only show cases of this kind (eg, WARN)",
				},
			},
			Action: runCasesList,
		},
	},
}

var warningsCmd = &cli.Command{
	Name:  "warnings",
	Usage: "inspect or reset warning counts",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "show the current warning count of a user",
			ArgsUsage: "<user-id>",
			Action:    runWarningsGet,
		},
		{
			Name:      "clear",
			Usage:     "reset the warning count of a user to zero, recording a case",
			ArgsUsage: "<user-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "actor",
					Usage:    "moderator id recorded on the case",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "reason",
					Value: "No reason",
				},
			},
			Action: runWarningsClear,
		},
	},
}

var hashCredentialCmd = &cli.Command{
	Name:  "hash-credential",
	Usage: "read a secret from stdin and print a restart credential entry for it",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "actor",
			Usage:    "user id the credential belongs to",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "cost",
			Value: bcrypt.DefaultCost,
		},
	},
	Action: func(cctx *cli.Context) error {
		fmt.Fprint(os.Stderr, "secret: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading secret: %w", err)
		}
		hash, err := restart.HashSecret(strings.TrimRight(line, "\r\n"), cctx.Int("cost"))
		if err != nil {
			return err
		}
		out, err := restart.MarshalCredential(cctx.String("actor"), hash)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

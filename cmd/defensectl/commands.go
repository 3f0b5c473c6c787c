package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	appMigrations "github.com/yigit/thesisflow/internal/app/migrations"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/bootstrap"
	"github.com/yigit/thesisflow/internal/db"
	pkgAuth "github.com/yigit/thesisflow/internal/pkg/auth"
	"github.com/yigit/thesisflow/internal/pkg/helpers"
	"github.com/yigit/thesisflow/internal/seed"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "defensectl",
		Usage: "operate the thesis defense workflow",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   bootstrap.DefaultConfigPath,
				Usage:   "path to the YAML config file",
				EnvVars: []string{"THESISFLOW_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			sweepCommand(),
			syncCommand(),
			resyncCommand(),
			tokenCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}
}

// withDeps wires the application for one command and closes it afterwards.
func withDeps(c *cli.Context, fn func(ctx context.Context, deps *bootstrap.Dependencies) error) error {
	ctx := c.Context
	deps, err := bootstrap.Build(ctx, c.String("config"))
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(ctx, deps)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "complete scheduled defenses whose end time has passed",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report due requests without completing them"},
		},
		Action: func(c *cli.Context) error {
			return withDeps(c, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				report, err := deps.SweeperService.Sweep(ctx, c.Bool("dry-run"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, report)
			})
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "copy one ready-for-finance request into the finance records",
		ArgsUsage: "<request-id>",
		Action: func(c *cli.Context) error {
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil || id <= 0 {
				return cli.Exit("sync needs a positive request id", 2)
			}
			return withDeps(c, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				result, err := deps.SyncService.Sync(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			})
		},
	}
}

func resyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "resync",
		Usage: "retry the sync of ready-for-finance requests that have no student record",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 100, Usage: "maximum number of requests to sync"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("limit") <= 0 {
				return cli.Exit("--limit must be positive", 2)
			}
			return withDeps(c, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				result, err := deps.SyncService.Resync(ctx, c.Int("limit"))
				if err != nil {
					return err
				}
				return printJSON(c.App.Writer, result)
			})
		},
	}
}

type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue an access token for an actor",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "actor", Required: true, Usage: "actor id, the student number for students"},
			&cli.StringFlag{Name: "name", Usage: "display name, matched against the committee adviser"},
			&cli.StringSliceFlag{Name: "role", Required: true, Usage: "role to grant, repeatable"},
		},
		Action: func(c *cli.Context) error {
			cfg, _, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
			if err != nil {
				return err
			}
			roles := c.StringSlice("role")
			for _, r := range roles {
				if !models.RoleType(r).Valid() {
					return cli.Exit(fmt.Sprintf("unknown role %q", r), 2)
				}
			}
			jwtService := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
				SecretKey:      cfg.JWT.Secret,
				AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 12*time.Hour),
				TokenIssuer:    cfg.JWT.Issuer,
			})
			token, expiresAt, err := jwtService.GenerateToken(c.String("actor"), c.String("name"), roles)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, tokenOutput{Token: token, ExpiresAt: expiresAt})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending SQL migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "only list migrations and when they were applied"},
		},
		Action: func(c *cli.Context) error {
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.String("config"))
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return cli.Exit("migrations only apply to the postgres driver", 2)
			}
			database, err := db.NewPostgresDB(cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if !c.Bool("status") {
				if err := bootstrap.RunMigrations(c.Context, cfg, database, lgr); err != nil {
					return err
				}
			}
			status, err := appMigrations.NewMigrator(database.Pool, lgr).Status(c.Context, cfg.Server.MigrationsDir)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, status)
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load a faculty directory file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "faculty YAML file, defaults to the configured seed file"},
		},
		Action: func(c *cli.Context) error {
			return withDeps(c, func(ctx context.Context, deps *bootstrap.Dependencies) error {
				path := c.String("file")
				if path == "" {
					path = deps.Config.Seed.FacultyFile
				}
				n, err := seed.Faculty(ctx, deps.DirectoryService, path, deps.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%d faculty members loaded from %s\n", n, path)
				return nil
			})
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"classy/cmd/account"
	"classy/cmd/internal/app"
)

const adminPasswordEnv = "CLASSY_ADMIN_PASSWORD"

func newApp() *cli.App {
	return &cli.App{
		Name:  "classy",
		Usage: "School account and session server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"CLASSY_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override log.level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			createAdminCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return app.Serve(cfg, app.NewLogger(cfg.Log))
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create the administrator account, or reset its profile and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Value: "admin", Usage: "Account id"},
			&cli.StringFlag{Name: "name", Value: "Classy Administrator", Usage: "Display name"},
			&cli.StringFlag{Name: "email", Required: true, Usage: "Contact email"},
			&cli.StringFlag{Name: "phone", Required: true, Usage: "Contact phone (digits)"},
			&cli.StringFlag{Name: "avatar", Usage: "Avatar URL"},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password (prefer the environment variable)",
				EnvVars: []string{adminPasswordEnv},
			},
		},
		Action: createAdmin,
	}
}

func createAdmin(c *cli.Context) error {
	pw := c.String("password")
	if pw == "" {
		return errors.New("password is required: set --password or " + adminPasswordEnv)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	admin, err := app.CreateAdmin(ctx, cfg, app.NewLogger(cfg.Log), account.CreateInput{
		ID:       c.String("id"),
		Name:     c.String("name"),
		Email:    c.String("email"),
		Phone:    c.String("phone"),
		Avatar:   c.String("avatar"),
		Password: pw,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "admin %q ready\n", admin.ID)
	return nil
}

func loadConfig(c *cli.Context) (app.Config, error) {
	overrides := map[string]any{}
	if lvl := c.String("log-level"); lvl != "" {
		overrides["log.level"] = lvl
	}
	cfg, err := app.LoadConfig(c.String("config"), overrides)
	if err != nil {
		return app.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

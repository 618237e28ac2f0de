// Tenantstore - Embedded Multi-Tenant Collection Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantstore

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tomtom215/tenantstore/internal/config"
	"github.com/tomtom215/tenantstore/internal/logging"
)

// closeTimeout bounds the final flush when a command exits.
const closeTimeout = 30 * time.Second

// cli carries global flag values and the opened app between cobra hooks.
type cli struct {
	configPath string
	logLevel   string
	app        *app
}

// execute runs one command line and always closes the app it opened, so
// buffered audit events and degraded writes get a final flush even when
// the command fails.
func execute(ctx context.Context, args []string, stdout io.Writer) error {
	root, c := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)
	if cerr := c.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}

	root := &cobra.Command{
		Use:           "tenantstore",
		Short:         "Administer a tenantstore collection store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newBackupCmd(c),
		newFlagCmd(c),
		newServeCmd(c),
	)
	return root, c
}

func (c *cli) open(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	c.app, err = openApp(ctx, cfg)
	return err
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := c.app.Close(ctx)
	c.app = nil
	return err
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

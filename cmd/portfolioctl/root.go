package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/shared/config"
	"portfolio-backend/internal/shared/telemetry"
)

type deps struct {
	loadConfig func() config.Config
	build      func(ctx context.Context, cfg config.Config) (*bootstrap.App, error)
}

func defaultDeps() deps {
	return deps{loadConfig: config.Load, build: bootstrap.Build}
}

type rootOptions struct {
	env      string
	logLevel string
	output   string

	cfg config.Config
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "portfolioctl",
		Short:   "Analyze a company's software portfolio for redundant tools",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "text", "json":
			default:
				return fmt.Errorf("unsupported output format %q", opts.output)
			}
			opts.cfg = d.loadConfig()
			if opts.env != "" {
				opts.cfg.Env = strings.ToLower(opts.env)
			}
			if opts.logLevel != "" {
				opts.cfg.LogLevel = opts.logLevel
			}
			return telemetry.Init(opts.cfg.LogLevel, opts.cfg.LogFormat)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.env, "env", "", "environment override (dev, local, production)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.output, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		newServeCmd(d, opts),
		newMigrateCmd(opts),
		newAnalyzeCmd(d, opts),
		newPreviewCmd(d, opts),
		newExtractCmd(d, opts),
	)
	return cmd
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, d deps, opts *rootOptions, fn func(app *bootstrap.App) error) error {
	app, err := d.build(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

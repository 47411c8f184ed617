package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/internal/application"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// rootOptions are shared by every command.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string

	// completer and logOutput replace the real model and stderr in tests.
	completer ports.TextCompleter
	logOutput io.Writer
}

// RootCmd builds the schoolbot command tree.
func RootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "schoolbot",
		Short:         "Textbook study assistant for 6th standard students",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnvFile(opts.envFile)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	root.AddCommand(
		askCmd(opts),
		chatCmd(opts),
		ingestCmd(opts),
		serveCmd(opts),
		reportCmd(opts),
	)
	return root
}

// loadEnvFile loads path when it exists. Variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// session is a wired application plus the registry its metrics live in.
type session struct {
	app      *application.App
	registry *prometheus.Registry
	log      logger.Logger
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := application.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logCfg := cfg.Log.LoggerConfig()
	if o.logOutput != nil {
		logCfg.Output = o.logOutput
	}
	logger.Init(logCfg)
	log := logger.GetDefault()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app, err := application.Build(ctx, cfg, application.BuildOptions{
		Completer:  o.completer,
		Registerer: registry,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	return &session{app: app, registry: registry, log: log}, nil
}

func (s *session) Close() {
	if err := s.app.Close(); err != nil {
		s.log.Warn("close index", "error", err)
	}
}

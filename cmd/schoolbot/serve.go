package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/infrastructure/httpapi"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus corpusFlags
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := corpus.load(ctx, s, cmd.ErrOrStderr(), false); err != nil {
				return err
			}

			server := s.app.Config.Server
			if addr != "" {
				server.Addr = addr
			}
			srv, err := httpapi.NewServer(httpapi.Options{
				Addr:           server.Addr,
				ReadTimeout:    server.ReadTimeout,
				WriteTimeout:   server.WriteTimeout,
				MaxUploadBytes: server.MaxUploadBytes,
				Queries:        s.app.Orchestrator,
				Corpus:         s.app.Ingestor,
				Safety:         s.app.Safety.Metrics(),
				Index:          s.app.Index,
				Gatherer:       s.registry,
				Logger:         s.log.With("component", "http"),
			})
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	corpus.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding the configuration")
	return cmd
}

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/infrastructure/retrieval"
)

func ingestCmd(opts *rootOptions) *cobra.Command {
	var corpus corpusFlags
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a textbook into the index",
		Long: `Replaces the indexed corpus. With the memory store the corpus lives
only as long as the command; configure the redis store to keep it.`,
		Example: `  SCHOOLBOT_REDIS_URL=redis://localhost:6379/0 schoolbot ingest --pdf english.pdf
  schoolbot ingest --text ch1.txt,ch2.txt --source "English Reader"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !corpus.any() {
				return errors.New("one of --pdf, --text or --sample is required")
			}
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.app.Config.Store.Backend == retrieval.StoreMemory {
				s.log.Warn("memory store selected, the corpus will not outlive this command")
			}
			return corpus.load(ctx, s, cmd.OutOrStdout(), false)
		},
	}
	corpus.register(cmd)
	return cmd
}

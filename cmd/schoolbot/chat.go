package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/internal/domain"
)

func chatCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus  corpusFlags
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively",
		Long: `Reads one question per line. Type "report" for the safety report
and "quit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if err := corpus.load(ctx, s, out, true); err != nil {
				return err
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(line) {
				case "":
				case "quit", "exit":
					return nil
				case "report":
					fmt.Fprintln(out, s.app.Safety.Metrics().Report())
				default:
					resp, err := s.app.Orchestrator.SubmitQuery(ctx, line)
					if err != nil && !errors.Is(err, domain.ErrEmptyQuery) {
						return err
					}
					if resp != nil {
						printResponse(out, resp, verbose)
					}
				}
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}
	corpus.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show retrieval details")
	return cmd
}

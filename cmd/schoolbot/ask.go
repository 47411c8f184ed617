package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/internal/domain"
)

func askCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus  corpusFlags
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Example: `  schoolbot ask --sample "What does shade mean?"
  schoolbot ask --pdf english.pdf --json "What is chapter 2 about?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if err := corpus.load(ctx, s, cmd.ErrOrStderr(), true); err != nil {
				return err
			}
			resp, err := s.app.Orchestrator.SubmitQuery(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printResponse(out, resp, verbose)
			return nil
		},
	}
	corpus.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show retrieval details")
	return cmd
}

func printResponse(out io.Writer, resp *domain.QueryResponse, verbose bool) {
	fmt.Fprintln(out, resp.Answer)
	if !verbose {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Status:      %s\n", resp.Status)
	fmt.Fprintf(out, "Quality:     %s\n", resp.Quality)
	fmt.Fprintf(out, "Confidence:  %s\n", resp.Confidence)
	fmt.Fprintf(out, "Level:       %s\n", resp.RetrievalLevel)
	fmt.Fprintf(out, "Corrected:   %t\n", resp.WasCorrected)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(out, "Sources:     %s\n", strings.Join(resp.Sources, ", "))
	}
	if resp.BlockedCategory != domain.CategoryNone {
		fmt.Fprintf(out, "Blocked:     %s\n", resp.BlockedCategory)
	}
	if resp.OutputFiltered {
		fmt.Fprintln(out, "Filtered:    answer replaced by the safety screen")
	}
	fmt.Fprintf(out, "Latency:     %s\n", resp.Latency)
}

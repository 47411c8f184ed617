package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// demoQuestions exercise an answer, a vocabulary lookup and two blocked
// categories.
var demoQuestions = []string{
	"What is the story about?",
	"What does shade mean?",
	"Tell me about sex",
	"How to cheat in exam",
}

func reportCmd(opts *rootOptions) *cobra.Command {
	var (
		corpus    corpusFlags
		questions string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a batch of questions and print the safety report",
		Long: `Runs each question through the pipeline, prints the answers and ends
with the safety counters. Without --questions a short demo set is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batch := demoQuestions
			if questions != "" {
				var err error
				if batch, err = readQuestions(questions); err != nil {
					return err
				}
			}

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
			for _, q := range batch {
				resp, err := s.app.Orchestrator.SubmitQuery(ctx, q)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Q: %s\n", q)
				fmt.Fprintf(out, "A: %s\n", resp.Answer)
				fmt.Fprintf(out, "   quality=%s confidence=%s status=%s\n\n", resp.Quality, resp.Confidence, resp.Status)
			}
			fmt.Fprintln(out, s.app.Safety.Metrics().Report())
			return nil
		},
	}
	corpus.register(cmd)
	cmd.Flags().StringVar(&questions, "questions", "", "file with one question per line")
	return cmd
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" && !strings.HasPrefix(q, "#") {
			questions = append(questions, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in %s", path)
	}
	return questions, nil
}

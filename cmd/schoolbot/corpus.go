package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iam-archie/school-chatbot/internal/application"
)

// corpusFlags select what to load before a command runs.
type corpusFlags struct {
	pdf    string
	texts  []string
	source string
	sample bool
}

func (f *corpusFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "textbook PDF to load")
	cmd.Flags().StringSliceVar(&f.texts, "text", nil, "plain-text files to load, one section each")
	cmd.Flags().StringVar(&f.source, "source", "", "source name for --text content (defaults to the first file name)")
	cmd.Flags().BoolVar(&f.sample, "sample", false, "load the bundled sample textbook")
	cmd.MarkFlagsMutuallyExclusive("pdf", "text", "sample")
}

func (f *corpusFlags) any() bool {
	return f.pdf != "" || len(f.texts) > 0 || f.sample
}

// load indexes the selected content. With nothing selected and an empty
// index, fallbackSample loads the sample textbook.
func (f *corpusFlags) load(ctx context.Context, s *session, out io.Writer, fallbackSample bool) error {
	var (
		report *application.IngestReport
		err    error
	)
	switch {
	case f.pdf != "":
		report, err = s.app.Ingestor.LoadPDF(ctx, f.pdf)
	case len(f.texts) > 0:
		report, err = f.loadTexts(ctx, s)
	case f.sample:
		report, err = s.app.Ingestor.LoadSample(ctx)
	default:
		if !fallbackSample {
			return nil
		}
		n, cerr := s.app.Index.Count(ctx)
		if cerr != nil {
			return fmt.Errorf("count indexed chunks: %w", cerr)
		}
		if n > 0 {
			return nil
		}
		s.log.Warn("no textbook loaded, using the sample textbook")
		report, err = s.app.Ingestor.LoadSample(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %s: %d pages, %d chunks\n", report.Source, report.Pages, report.Chunks)
	return nil
}

func (f *corpusFlags) loadTexts(ctx context.Context, s *session) (*application.IngestReport, error) {
	texts := make([]string, 0, len(f.texts))
	for _, path := range f.texts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		texts = append(texts, string(data))
	}
	source := f.source
	if source == "" {
		source = filepath.Base(f.texts[0])
	}
	return s.app.Ingestor.LoadTexts(ctx, source, texts)
}

package application

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/iam-archie/school-chatbot/infrastructure/ingest"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// CorpusIndex is the writable side of the search index.
type CorpusIndex interface {
	Replace(ctx context.Context, records []ports.VectorRecord) error
	Count(ctx context.Context) (int, error)
}

// IngestReport summarises one corpus load.
type IngestReport struct {
	Source   string        `json:"source"`
	Pages    int           `json:"pages"`
	Chunks   int           `json:"chunks"`
	Duration time.Duration `json:"duration"`
}

// Ingestor loads textbook content into the index, replacing whatever was
// there before.
type Ingestor struct {
	pipeline *ingest.Pipeline
	index    CorpusIndex
	metrics  ports.MetricsCollector
	log      logger.Logger
}

// NewIngestor creates an Ingestor. metrics and log may be nil.
func NewIngestor(pipeline *ingest.Pipeline, index CorpusIndex, metrics ports.MetricsCollector, log logger.Logger) *Ingestor {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Ingestor{pipeline: pipeline, index: index, metrics: metrics, log: log}
}

// LoadPDF indexes the PDF at path.
func (in *Ingestor) LoadPDF(ctx context.Context, path string) (*IngestReport, error) {
	pages, err := ingest.LoadPDF(path, in.log)
	if err != nil {
		return nil, err
	}
	return in.load(ctx, filepath.Base(path), pages)
}

// LoadPDFReader indexes an uploaded PDF.
func (in *Ingestor) LoadPDFReader(ctx context.Context, name string, r io.ReaderAt, size int64) (*IngestReport, error) {
	pages, err := ingest.ReadPDF(name, r, size, in.log)
	if err != nil {
		return nil, err
	}
	return in.load(ctx, name, pages)
}

// LoadTexts indexes each text as one numbered section of source.
func (in *Ingestor) LoadTexts(ctx context.Context, source string, texts []string) (*IngestReport, error) {
	return in.load(ctx, source, ingest.TextSections(source, texts))
}

// LoadSample indexes the bundled sample textbook.
func (in *Ingestor) LoadSample(ctx context.Context) (*IngestReport, error) {
	return in.LoadTexts(ctx, ingest.SampleSource, ingest.SampleTextbook())
}

func (in *Ingestor) load(ctx context.Context, source string, pages []ingest.Page) (*IngestReport, error) {
	started := time.Now()
	records, err := in.pipeline.Run(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", source, err)
	}
	if err := in.index.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", source, err)
	}

	report := &IngestReport{
		Source:   source,
		Pages:    len(pages),
		Chunks:   len(records),
		Duration: time.Since(started),
	}
	in.metrics.RecordGauge(ports.MetricCorpusChunks, float64(report.Chunks), map[string]string{"source": source})
	in.metrics.RecordLatency("ingest", report.Duration, nil)
	in.log.Info("corpus loaded", "source", source, "pages", report.Pages, "chunks", report.Chunks, "duration", report.Duration)
	return report, nil
}

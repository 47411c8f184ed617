// Package httpapi exposes the chatbot over HTTP: questions, corpus loading,
// safety reporting, health and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iam-archie/school-chatbot/internal/application"
	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// APIBase prefixes every versioned route.
const APIBase = "/api/v1"

const shutdownTimeout = 10 * time.Second

// QueryService answers student questions.
type QueryService interface {
	SubmitQuery(ctx context.Context, question string) (*domain.QueryResponse, error)
}

// CorpusService loads textbook content.
type CorpusService interface {
	LoadTexts(ctx context.Context, source string, texts []string) (*application.IngestReport, error)
	LoadPDFReader(ctx context.Context, name string, r io.ReaderAt, size int64) (*application.IngestReport, error)
	LoadSample(ctx context.Context) (*application.IngestReport, error)
}

// SafetyReporter exposes the safety counters.
type SafetyReporter interface {
	Snapshot() map[string]int64
	TotalBlocked() int64
	Report() string
}

// CorpusCounter reports the number of indexed chunks.
type CorpusCounter interface {
	Count(ctx context.Context) (int, error)
}

// Options configures a Server. Gatherer defaults to the global Prometheus
// registry and Logger to a no-op logger.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64

	Queries  QueryService
	Corpus   CorpusService
	Safety   SafetyReporter
	Index    CorpusCounter
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	engine *gin.Engine
	log    logger.Logger
}

// NewServer builds the router.
func NewServer(opts Options) (*Server, error) {
	if opts.Queries == nil || opts.Corpus == nil || opts.Safety == nil {
		return nil, fmt.Errorf("http server: query, corpus and safety services are required: %w", domain.ErrInvalidConfiguration)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}

	s := &Server{opts: opts, log: opts.Logger}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), loggerMiddleware(s.log))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group(APIBase)
	{
		// POST /api/v1/query
		api.POST("/query", s.query)

		corpus := api.Group("/corpus")
		{
			corpus.POST("/text", s.loadText)
			corpus.POST("/pdf", s.loadPDF)
			corpus.POST("/sample", s.loadSample)
		}

		safety := api.Group("/safety")
		{
			safety.GET("/metrics", s.safetyMetrics)
			safety.GET("/report", s.safetyReport)
		}
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrBind, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

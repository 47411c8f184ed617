package application

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iam-archie/school-chatbot/infrastructure/ingest"
	"github.com/iam-archie/school-chatbot/infrastructure/llm"
	"github.com/iam-archie/school-chatbot/infrastructure/middleware"
	"github.com/iam-archie/school-chatbot/infrastructure/retrieval"
	"github.com/iam-archie/school-chatbot/infrastructure/safety"
	"github.com/iam-archie/school-chatbot/infrastructure/units"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// BuildOptions overrides parts of the wiring, mostly for tests.
type BuildOptions struct {
	// Completer replaces the configured LLM client.
	Completer ports.TextCompleter
	// Embedder replaces the configured embedder.
	Embedder ports.Embedder
	// Registerer receives the Prometheus metrics. Nil uses the default
	// registerer.
	Registerer prometheus.Registerer
	Logger     logger.Logger
}

// App is a fully wired chatbot.
type App struct {
	Orchestrator *Orchestrator
	Ingestor     *Ingestor
	Safety       *safety.Screen
	Index        *retrieval.Index
	Metrics      *middleware.PrometheusMetrics
	Config       *Config
}

// Build wires every component described by cfg. cfg must already be
// validated.
func Build(ctx context.Context, cfg *Config, opts BuildOptions) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(cfg.Log.LoggerConfig())
	}

	metrics := middleware.NewPrometheusMetrics(opts.Registerer)

	completer := opts.Completer
	if completer == nil {
		client, err := llm.Build(cfg.LLM.LLMSettings(), metrics)
		if err != nil {
			return nil, fmt.Errorf("build llm client: %w", err)
		}
		completer = client
	}

	embedder := opts.Embedder
	if embedder == nil {
		settings := cfg.Embedder
		if settings.APIKey == "" && cfg.LLM.Provider == "openai" {
			settings.APIKey = cfg.LLM.APIKey
		}
		var err error
		embedder, err = retrieval.NewEmbedder(settings)
		if err != nil {
			return nil, fmt.Errorf("build embedder: %w", err)
		}
	}

	store, err := retrieval.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("build vector store: %w", err)
	}
	index := retrieval.NewIndex(embedder, store, log.With("component", "index"))

	completion := cfg.LLM.CompletionConfig()
	evaluatorCfg := cfg.Evaluator
	evaluatorCfg.CompletionConfig = completion
	evaluator, err := units.NewContextEvaluator(completer, evaluatorCfg, log.With("component", "evaluator"))
	if err != nil {
		return nil, closeOnError(index, fmt.Errorf("build evaluator: %w", err))
	}
	refiner, err := units.NewQueryRefiner(completer, completion, log.With("component", "refiner"))
	if err != nil {
		return nil, closeOnError(index, fmt.Errorf("build refiner: %w", err))
	}
	expander, err := units.NewQueryExpander(completer, completion)
	if err != nil {
		return nil, closeOnError(index, fmt.Errorf("build expander: %w", err))
	}
	generator, err := units.NewAnswerGenerator(completer, completion)
	if err != nil {
		return nil, closeOnError(index, fmt.Errorf("build generator: %w", err))
	}

	screen := safety.NewScreen(safety.NewMetrics(), log.With("component", "safety"))
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if err := registerer.Register(middleware.NewSafetyCollector(screen.Metrics())); err != nil {
		return nil, closeOnError(index, fmt.Errorf("register safety metrics: %w", err))
	}

	retriever := retrieval.NewRetriever(index, expander, cfg.Retrieval, log.With("component", "retriever"))

	orchestrator, err := NewOrchestrator(OrchestratorDeps{
		Safety:       screen,
		Retriever:    retriever,
		Evaluator:    evaluator,
		Refiner:      refiner,
		Generator:    generator,
		SystemPrompt: cfg.SystemPrompt,
		Metrics:      metrics,
		Logger:       log,
	})
	if err != nil {
		return nil, closeOnError(index, err)
	}

	pipeline, err := ingest.NewPipeline(embedder, cfg.Ingest, log.With("component", "ingest"))
	if err != nil {
		return nil, closeOnError(index, fmt.Errorf("build ingest pipeline: %w", err))
	}

	log.Debug("application wired",
		"llm_provider", cfg.LLM.Provider,
		"embedder", cfg.Embedder.Provider,
		"store", cfg.Store.Backend,
	)
	return &App{
		Orchestrator: orchestrator,
		Ingestor:     NewIngestor(pipeline, index, metrics, log.With("component", "ingestor")),
		Safety:       screen,
		Index:        index,
		Metrics:      metrics,
		Config:       cfg,
	}, nil
}

// Close releases the vector store.
func (a *App) Close() error {
	return a.Index.Close()
}

func closeOnError(index *retrieval.Index, err error) error {
	if cerr := index.Close(); cerr != nil {
		return fmt.Errorf("%w (close index: %v)", err, cerr)
	}
	return err
}

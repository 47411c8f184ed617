package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Fixed answers for responses that did not come from the model.
const (
	AnswerNoResults    = "I couldn't find information about that in your textbook. Could you try asking in a different way?"
	AnswerOutputFilter = "I'm sorry, I couldn't generate an appropriate response. Please try asking another question!"
	AnswerUnavailable  = "Sorry, the study assistant is temporarily unavailable. Please try again in a little while."
)

const tracerName = "github.com/iam-archie/school-chatbot/internal/application"

// SafetyChecker screens questions and answers.
type SafetyChecker interface {
	CheckInput(text string) domain.SafetyVerdict
	CheckOutput(text string) domain.SafetyVerdict
}

// Retriever searches the corpus at one ladder rung.
type Retriever interface {
	Retrieve(ctx context.Context, query string, level domain.RetrievalLevel) (domain.RetrievalAttempt, error)
}

// ContextGrader grades retrieved context.
type ContextGrader interface {
	Evaluate(ctx context.Context, query, retrievedContext string) (domain.ContextEvaluation, error)
}

// QueryRefiner rewrites a poorly served query.
type QueryRefiner interface {
	Refine(ctx context.Context, query string, evaluation domain.ContextEvaluation) (string, error)
}

// AnswerGenerator writes the final answer.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemInstructions, retrievedContext, query string) (string, error)
}

// OrchestratorDeps are the collaborators of an Orchestrator. Metrics,
// Tracer and Logger are optional.
type OrchestratorDeps struct {
	Safety       SafetyChecker
	Retriever    Retriever
	Evaluator    ContextGrader
	Refiner      QueryRefiner
	Generator    AnswerGenerator
	SystemPrompt string
	Metrics      ports.MetricsCollector
	Tracer       trace.Tracer
	Logger       logger.Logger
}

// Orchestrator runs the corrective retrieval state machine for one question
// at a time per call. It holds no per-query state, so one instance serves
// concurrent callers.
type Orchestrator struct {
	safety       SafetyChecker
	retriever    Retriever
	evaluator    ContextGrader
	refiner      QueryRefiner
	generator    AnswerGenerator
	systemPrompt string
	metrics      ports.MetricsCollector
	tracer       trace.Tracer
	log          logger.Logger
	now          func() time.Time
}

// NewOrchestrator checks that every required collaborator is present.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	verr := domain.NewValidationError("orchestrator")
	if deps.Safety == nil {
		verr.AddError("safety checker is required")
	}
	if deps.Retriever == nil {
		verr.AddError("retriever is required")
	}
	if deps.Evaluator == nil {
		verr.AddError("evaluator is required")
	}
	if deps.Refiner == nil {
		verr.AddError("refiner is required")
	}
	if deps.Generator == nil {
		verr.AddError("generator is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	o := &Orchestrator{
		safety:       deps.Safety,
		retriever:    deps.Retriever,
		evaluator:    deps.Evaluator,
		refiner:      deps.Refiner,
		generator:    deps.Generator,
		systemPrompt: deps.SystemPrompt,
		metrics:      deps.Metrics,
		tracer:       deps.Tracer,
		log:          deps.Logger,
		now:          time.Now,
	}
	if o.metrics == nil {
		o.metrics = ports.NoopMetrics{}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.log == nil {
		o.log = logger.NewNop()
	}
	return o, nil
}

// queryRun is the mutable state of one SubmitQuery call.
type queryRun struct {
	resp      *domain.QueryResponse
	query     string
	level     domain.RetrievalLevel
	attempt   domain.RetrievalAttempt
	eval      domain.ContextEvaluation
	log       logger.Logger
	startedAt time.Time
}

// SubmitQuery answers a student question.
//
// Safety rejections, empty retrieval and low-quality context all produce a
// normal response; see QueryResponse.Status. External service failures
// produce a StatusUnavailable response. An error is returned only for a
// blank question or when ctx is cancelled by the caller.
func (o *Orchestrator) SubmitQuery(ctx context.Context, text string) (*domain.QueryResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := &queryRun{
		resp:      &domain.QueryResponse{ID: uuid.NewString(), GuardrailPassed: true, Sources: []string{}},
		level:     domain.LevelPrimary,
		startedAt: o.now(),
	}
	run.log = logger.FromContextOr(ctx, o.log).With("query_id", run.resp.ID)

	ctx, span := o.tracer.Start(ctx, "Orchestrator.SubmitQuery", trace.WithAttributes(
		attribute.String("query.id", run.resp.ID),
	))
	defer span.End()

	resp, err := o.run(ctx, run, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	resp.Latency = o.now().Sub(run.startedAt)

	span.SetAttributes(
		attribute.String("query.status", string(resp.Status)),
		attribute.String("query.level", resp.RetrievalLevel.String()),
		attribute.String("query.quality", resp.Quality.String()),
		attribute.Bool("query.was_corrected", resp.WasCorrected),
	)
	o.metrics.RecordCounter(ports.MetricQueries, 1, map[string]string{
		"status":  string(resp.Status),
		"level":   resp.RetrievalLevel.String(),
		"quality": resp.Quality.String(),
	})
	run.log.Info("query finished",
		"status", resp.Status,
		"level", resp.RetrievalLevel,
		"quality", resp.Quality,
		"was_corrected", resp.WasCorrected,
		"latency", resp.Latency,
	)
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, run *queryRun, text string) (*domain.QueryResponse, error) {
	// CHECK_INPUT
	end := o.stage(ctx, run, domain.StageCheckInput)
	verdict := o.safety.CheckInput(text)
	end(nil)
	if !verdict.Safe {
		return o.blocked(run, verdict), nil
	}
	run.query = verdict.SanitizedText

	for tries := 1; ; tries++ {
		// RETRIEVE
		end = o.stage(ctx, run, domain.StageRetrieve)
		attempt, err := o.retriever.Retrieve(ctx, run.query, run.level)
		end(err)
		if err != nil {
			return o.fail(ctx, run, domain.StageRetrieve, err)
		}
		run.attempt = attempt
		if attempt.Empty() && run.level == domain.LevelPrimary {
			return o.noResults(run), nil
		}

		// EVALUATE
		end = o.stage(ctx, run, domain.StageEvaluate)
		eval, err := o.evaluator.Evaluate(ctx, run.query, attempt.Context)
		end(err)
		if err != nil {
			return o.fail(ctx, run, domain.StageEvaluate, err)
		}
		run.eval = eval
		run.log.Debug("context graded",
			"level", run.level,
			"quality", eval.Tier,
			"outcome", eval.Outcome,
			"mean", eval.MeanScore(),
		)
		if !eval.NeedsEscalation {
			break
		}

		// ESCALATE
		next, ok := run.level.Next()
		if !ok || tries >= domain.MaxRetrievalAttempts {
			run.log.Debug("retrieval ladder exhausted, accepting context", "quality", eval.Tier)
			break
		}
		if next == domain.LevelTertiary {
			end = o.stage(ctx, run, domain.StageRefine)
			refined, err := o.refiner.Refine(ctx, run.query, eval)
			end(err)
			if err != nil {
				return o.fail(ctx, run, domain.StageRefine, err)
			}
			run.resp.WasCorrected = true
			run.query = refined
		}
		o.metrics.RecordCounter(ports.MetricEscalations, 1, map[string]string{"level": next.String()})
		run.log.Debug("escalating retrieval", "from", run.level, "to", next)
		run.level = next
	}

	// GENERATE
	end = o.stage(ctx, run, domain.StageGenerate)
	answer, err := o.generator.Generate(ctx, o.systemPrompt, run.attempt.Context, run.query)
	end(err)
	if err != nil {
		return o.fail(ctx, run, domain.StageGenerate, err)
	}

	// CHECK_OUTPUT
	end = o.stage(ctx, run, domain.StageCheckOutput)
	outVerdict := o.safety.CheckOutput(answer)
	end(nil)

	resp := run.resp
	if outVerdict.Safe {
		resp.Answer = outVerdict.SanitizedText
	} else {
		resp.Answer = AnswerOutputFilter
		resp.OutputFiltered = true
		run.log.Warn("generated answer replaced", "category", outVerdict.Category)
	}

	// DONE
	eval := run.eval
	resp.Status = domain.StatusAnswered
	resp.Quality = eval.Tier
	resp.Confidence = eval.Tier.Confidence()
	resp.RetrievalLevel = run.level
	resp.Sources = run.attempt.Sources()
	resp.Evaluation = &eval
	return resp, nil
}

// stage opens a span for one state and returns the function that closes
// it, recording latency and any error.
func (o *Orchestrator) stage(ctx context.Context, run *queryRun, stage domain.Stage) func(error) {
	level := run.level
	_, span := o.tracer.Start(ctx, "stage."+string(stage), trace.WithAttributes(
		attribute.String("stage.level", level.String()),
	))
	started := o.now()
	return func(err error) {
		o.metrics.RecordLatency(string(stage), o.now().Sub(started), map[string]string{"level": level.String()})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (o *Orchestrator) blocked(run *queryRun, verdict domain.SafetyVerdict) *domain.QueryResponse {
	resp := run.resp
	resp.Answer = verdict.Reason
	resp.Quality = domain.QualityPoor
	resp.RetrievalLevel = domain.LevelFallback
	resp.GuardrailPassed = false
	resp.BlockedCategory = verdict.Category
	resp.Confidence = domain.ConfidenceNotApplicable
	resp.Status = domain.StatusBlocked
	return resp
}

func (o *Orchestrator) noResults(run *queryRun) *domain.QueryResponse {
	resp := run.resp
	resp.Answer = AnswerNoResults
	resp.Quality = domain.QualityPoor
	resp.RetrievalLevel = domain.LevelNoResults
	resp.Confidence = domain.QualityPoor.Confidence()
	resp.Status = domain.StatusNoResults
	return resp
}

// fail turns a collaborator error into an unavailable response, unless the
// caller cancelled ctx, in which case the error is returned.
func (o *Orchestrator) fail(ctx context.Context, run *queryRun, stage domain.Stage, err error) (*domain.QueryResponse, error) {
	stageErr := domain.NewStageError(stage, run.level, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %w", ctxErr, stageErr)
	}

	run.log.Error("query failed", "stage", stage, "level", run.level, "error", err,
		"retryable", errors.Is(err, ports.ErrServiceUnavailable) || errors.Is(err, ports.ErrTimeout))

	resp := run.resp
	resp.Answer = AnswerUnavailable
	resp.Quality = domain.QualityPoor
	resp.RetrievalLevel = run.level
	resp.WasCorrected = resp.WasCorrected && stage != domain.StageRefine
	resp.Confidence = domain.ConfidenceNotApplicable
	resp.Status = domain.StatusUnavailable
	resp.Sources = []string{}
	return resp, nil
}

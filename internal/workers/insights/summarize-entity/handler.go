package summarizeentity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	apperrors "qfusion/internal/common/errors"
	"qfusion/internal/common/logger"
	"qfusion/internal/common/metrics"
	"qfusion/internal/common/observability"
	"qfusion/internal/common/runlog"
	"qfusion/internal/models"
	llmsummary "qfusion/internal/workers/ai-conversation/llm-summary"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
	fetchinsights "qfusion/internal/workers/insights/fetch-insights"
	translateparameters "qfusion/internal/workers/insights/translate-parameters"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "taste-summary"

type Translator interface {
	ResolveTake(take int) int
	Translate(desc models.EntityTypeDescriptor, raw map[string]interface{}, take, offset int) (translateparameters.TranslatedQuery, error)
}

type InsightsFetcher interface {
	Fetch(ctx context.Context, desc models.EntityTypeDescriptor, query translateparameters.TranslatedQuery) ([]fetchinsights.ResultItem, error)
}

type Completer interface {
	ResolveModel(model string) string
	Complete(ctx context.Context, messages []llmsummary.Message, model string) (string, error)
}

type Shaper interface {
	Execute(ctx context.Context, input *buildresponse.Input) (*buildresponse.Output, error)
}

// Dependencies are the pipeline collaborators. Recorder and Observability may be nil.
type Dependencies struct {
	Translator    Translator
	Insights      InsightsFetcher
	Completer     Completer
	Shaper        Shaper
	Recorder      runlog.Recorder
	Observability *observability.Observability
}

type Handler struct {
	config       *Config
	deps         Dependencies
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	if deps.Recorder == nil {
		deps.Recorder = runlog.NewMemoryRecorder(0)
	}
	if deps.Observability == nil {
		deps.Observability = observability.NewNoop()
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		deps:         deps,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

// Handle serves the taste-summary job: variables are the flat request bag plus entityType.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		h.failJob(client, job, apperrors.NewInvalidRequestError("parse job variables: "+err.Error()))
		return
	}

	input, err := InputFromVariables(vars)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute runs Validating -> Fetching -> Summarizing -> Shaping. The first failure ends
// the run; errors are *errors.StandardError. Every run is appended to the run log.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	run := runlog.Run{
		ID:         uuid.NewString(),
		EntityType: input.EntityType,
		Model:      h.deps.Completer.ResolveModel(input.Model),
		StartedAt:  time.Now().UTC(),
	}

	output, err := h.execute(ctx, input, &run)

	run.DurationMs = time.Since(run.StartedAt).Milliseconds()
	code := "OK"
	if err != nil {
		stdErr := apperrors.AsStandard(err)
		err = stdErr
		code = string(stdErr.Code)
		run.FailedAt = run.Stage
		run.Stage = string(StageErrored)
		run.Code = code
		run.Error = stdErr.Message
	}
	metrics.SummaryRequests.WithLabelValues(entityLabel(input.EntityType), code).Inc()

	if recErr := h.deps.Recorder.Record(ctx, run); recErr != nil {
		h.logger.WithError(recErr).Warn("failed to record run", map[string]interface{}{
			"runId": run.ID,
		})
	}
	return output, err
}

func (h *Handler) execute(ctx context.Context, input *Input, run *runlog.Run) (*Output, error) {
	var (
		desc    models.EntityTypeDescriptor
		query   translateparameters.TranslatedQuery
		items   []fetchinsights.ResultItem
		summary string
		shaped  *buildresponse.Output
	)

	err := h.stage(ctx, run, StageValidating, func(ctx context.Context) error {
		var err error
		desc, err = models.Describe(input.EntityType)
		if err != nil {
			return err
		}
		query, err = h.deps.Translator.Translate(desc, input.Params, h.deps.Translator.ResolveTake(input.Take), input.Offset)
		var reqErr *translateparameters.RequiredParameterError
		if errors.As(err, &reqErr) {
			return apperrors.NewValidationFailedError(reqErr.Param, err.Error())
		}
		run.Query = query.Map()
		return err
	})
	if err != nil {
		return nil, err
	}

	err = h.stage(ctx, run, StageFetching, func(ctx context.Context) error {
		var err error
		items, err = h.deps.Insights.Fetch(ctx, desc, query)
		if err != nil {
			return err
		}
		run.ItemCount = len(items)
		if len(items) == 0 {
			return apperrors.NewNotFoundError(desc.Label)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = h.stage(ctx, run, StageSummarizing, func(ctx context.Context) error {
		titles := make([]string, len(items))
		for i, item := range items {
			titles[i] = buildresponse.TitleOf(item, desc.TitleField)
		}
		messages := llmsummary.BuildMessages(strings.Join(titles, ", "), desc.Label, input.UserQuery)

		var err error
		summary, err = h.deps.Completer.Complete(ctx, messages, run.Model)
		if err != nil && !apperrors.HasCode(err, apperrors.ErrCodeMissingCredential) &&
			!apperrors.HasCode(err, apperrors.ErrCodeUpstreamRequestFailed) {
			return apperrors.NewUpstreamRequestFailedError(llmsummary.ServiceName, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = h.stage(ctx, run, StageShaping, func(ctx context.Context) error {
		var err error
		shaped, err = h.deps.Shaper.Execute(ctx, &buildresponse.Input{
			Label:      desc.Label,
			Items:      items,
			TitleField: desc.TitleField,
			Summary:    summary,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	run.Stage = string(StageDone)
	return &Output{RunID: run.ID, Stage: StageDone, Result: shaped.Result}, nil
}

// stage runs fn inside a span and records its duration and outcome.
func (h *Handler) stage(ctx context.Context, run *runlog.Run, stage Stage, fn func(context.Context) error) error {
	run.Stage = string(stage)
	ctx, span := h.deps.Observability.StartSpan(ctx, "summary."+strings.ToLower(string(stage)),
		attribute.String("runId", run.ID),
		attribute.String("entityType", run.EntityType),
	)

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SummaryStageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	h.deps.Observability.RecordStage(ctx, string(stage), status, elapsed)
	observability.EndSpan(span, err)

	h.logger.Debug("stage finished", map[string]interface{}{
		"runId":      run.ID,
		"entityType": run.EntityType,
		"stage":      string(stage),
		"status":     status,
		"durationMs": elapsed.Milliseconds(),
	})
	return err
}

// entityLabel keeps metric cardinality bounded to the catalog.
func entityLabel(key string) string {
	if desc, err := models.Describe(key); err == nil {
		return desc.Key()
	}
	return "unknown"
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"jobKey": job.Key, "error": err})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"jobKey": job.Key, "error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandard(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}

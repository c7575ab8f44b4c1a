package summarizeentity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "qfusion/internal/common/errors"
	"qfusion/internal/common/logger"
	"qfusion/internal/common/observability"
	"qfusion/internal/common/runlog"
	llmsummary "qfusion/internal/workers/ai-conversation/llm-summary"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
	fetchinsights "qfusion/internal/workers/insights/fetch-insights"
	translateparameters "qfusion/internal/workers/insights/translate-parameters"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type upstreams struct {
	insights       *httptest.Server
	completion     *httptest.Server
	insightsCalls  int32
	completionCall int32

	mu        sync.Mutex
	lastQuery string
}

func (u *upstreams) query() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastQuery
}

func newUpstreams(t *testing.T, entitiesJSON string, completionStatus int) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.insights = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.insightsCalls, 1)
		u.mu.Lock()
		u.lastQuery = r.URL.RawQuery
		u.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true,"results":{"entities":` + entitiesJSON + `}}`))
	}))
	t.Cleanup(u.insights.Close)

	u.completion = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.completionCall, 1)
		w.Header().Set("Content-Type", "application/json")
		if completionStatus != http.StatusOK {
			w.WriteHeader(completionStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"A tense double bill."}}]}`))
	}))
	t.Cleanup(u.completion.Close)

	return u
}

func createTestHandler(t *testing.T, u *upstreams, rec runlog.Recorder, obs *observability.Observability) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)

	deps := Dependencies{
		Translator: translateparameters.NewHandler(translateparameters.LoadConfig(), log),
		Insights: fetchinsights.NewHandler(&fetchinsights.Config{
			BaseURL: u.insights.URL,
			APIKey:  "qloo-test",
			Timeout: 2 * time.Second,
		}, log),
		Completer: llmsummary.NewHandler(&llmsummary.Config{
			BaseURL:      u.completion.URL,
			APIKey:       "or-test",
			DefaultModel: "anthropic/claude-3-haiku",
			MaxTokens:    200,
			Temperature:  0.7,
			Timeout:      2 * time.Second,
		}, log),
		Shaper:        buildresponse.NewHandler(buildresponse.LoadConfig(), log),
		Recorder:      rec,
		Observability: obs,
	}
	return NewHandler(&Config{Timeout: 5 * time.Second}, deps, log)
}

func TestExecute_Success(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Heat"},{"name":"Ronin"}]`, http.StatusOK)
	rec := runlog.NewMemoryRecorder(10)
	h := createTestHandler(t, u, rec, nil)

	out, err := h.Execute(context.Background(), &Input{
		EntityType: "movie",
		Params:     map[string]interface{}{"genre": "Thriller", "filter.release_year.min": 1995.0},
		UserQuery:  "",
	})
	require.NoError(t, err)

	assert.Equal(t, StageDone, out.Stage)
	assert.NotEmpty(t, out.RunID)

	data, err := json.Marshal(out.Result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"movieCount":2,"movieTitles":"Heat, Ronin","summary":"A tense double bill."}`, string(data))

	assert.Contains(t, u.query(), "filter.tags=urn%3Atag%3Agenre%3Amedia%3Athriller")
	assert.Contains(t, u.query(), "take=10")
	assert.NotContains(t, u.query(), "genre=")

	runs, err := rec.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(StageDone), runs[0].Stage)
	assert.Equal(t, 2, runs[0].ItemCount)
	assert.Equal(t, "anthropic/claude-3-haiku", runs[0].Model)
	assert.Equal(t, "urn:entity:movie", runs[0].Query["filter.type"])
}

func TestExecute_ValidationBeforeNetwork(t *testing.T) {
	u := newUpstreams(t, `[{"name":"x"}]`, http.StatusOK)
	rec := runlog.NewMemoryRecorder(10)
	h := createTestHandler(t, u, rec, nil)

	_, err := h.Execute(context.Background(), &Input{
		EntityType: "movie",
		Params:     map[string]interface{}{"genre": "   "},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "genre")

	assert.Equal(t, int32(0), atomic.LoadInt32(&u.insightsCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&u.completionCall))

	runs, _ := rec.Recent(context.Background(), 1)
	require.Len(t, runs, 1)
	assert.Equal(t, string(StageErrored), runs[0].Stage)
	assert.Equal(t, string(StageValidating), runs[0].FailedAt)
	assert.Equal(t, string(apperrors.ErrCodeValidationFailed), runs[0].Code)
}

func TestExecute_NoResultsSkipsCompletion(t *testing.T) {
	u := newUpstreams(t, `[]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	_, err := h.Execute(context.Background(), &Input{
		EntityType: "place",
		Params:     map[string]interface{}{"cuisines": []string{"Italian"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&u.insightsCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&u.completionCall))
}

func TestExecute_CompletionFailure(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Tate Modern"}]`, http.StatusServiceUnavailable)
	h := createTestHandler(t, u, nil, nil)

	_, err := h.Execute(context.Background(), &Input{EntityType: "destination", Params: map[string]interface{}{
		"signal.interests.entities": []string{"abc-123"},
	}})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamRequestFailed))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "model overloaded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&u.completionCall))
}

func TestExecute_UnknownEntityType(t *testing.T) {
	u := newUpstreams(t, `[]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	_, err := h.Execute(context.Background(), &Input{EntityType: "spaceship"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownEntityType))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(&u.insightsCalls))
}

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) ResolveModel(model string) string {
	args := m.Called(model)
	return args.String(0)
}

func (m *MockCompleter) Complete(ctx context.Context, messages []llmsummary.Message, model string) (string, error) {
	args := m.Called(ctx, messages, model)
	return args.String(0), args.Error(1)
}

func TestExecute_PromptAndModel(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Serial"},{"name":"Radiolab"}]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	completer := &MockCompleter{}
	completer.On("ResolveModel", "openai/gpt-4").Return("openai/gpt-4")
	completer.On("Complete", mock.Anything, llmsummary.BuildMessages("Serial, Radiolab", "Podcast", "true crime only"), "openai/gpt-4").
		Return("Two staples.", nil)
	h.deps.Completer = completer

	out, err := h.Execute(context.Background(), &Input{EntityType: "podcast", UserQuery: "true crime only", Model: "openai/gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, "Two staples.", out.Result.Summary)
	completer.AssertExpectations(t)
}

func TestExecute_ForeignCompletionErrorIsUpstream(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Serial"}]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	completer := &MockCompleter{}
	completer.On("ResolveModel", "").Return("default")
	completer.On("Complete", mock.Anything, mock.Anything, "default").Return("", errors.New("socket closed"))
	h.deps.Completer = completer

	_, err := h.Execute(context.Background(), &Input{EntityType: "podcast"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamRequestFailed))
	assert.Contains(t, apperrors.AsStandard(err).Details, "socket closed")
}

func TestExecute_MissingCredentialPreserved(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Serial"}]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	completer := &MockCompleter{}
	completer.On("ResolveModel", "").Return("default")
	completer.On("Complete", mock.Anything, mock.Anything, "default").
		Return("", apperrors.NewMissingCredentialError(llmsummary.ServiceName))
	h.deps.Completer = completer

	_, err := h.Execute(context.Background(), &Input{EntityType: "podcast"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingCredential))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestExecute_NotFoundNeverCallsCompleter(t *testing.T) {
	u := newUpstreams(t, `[]`, http.StatusOK)
	h := createTestHandler(t, u, nil, nil)

	completer := &MockCompleter{}
	completer.On("ResolveModel", "").Return("default")
	h.deps.Completer = completer

	_, err := h.Execute(context.Background(), &Input{EntityType: "brand"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_TracesEveryStage(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Radiohead"}]`, http.StatusOK)
	spans := tracetest.NewSpanRecorder()
	obs := observability.New("summary-test", promclient.NewRegistry(), sdktrace.WithSpanProcessor(spans))
	defer obs.Shutdown()

	h := createTestHandler(t, u, nil, obs)
	_, err := h.Execute(context.Background(), &Input{EntityType: "artist", Take: 3})
	require.NoError(t, err)

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"summary.validating", "summary.fetching", "summary.summarizing", "summary.shaping"}, names)
	assert.Contains(t, u.query(), "take=3")
}

func TestInputFromVariables(t *testing.T) {
	input, err := InputFromVariables(map[string]interface{}{
		"entityType":                "place",
		"take":                      5.0,
		"userQuery":                 "date night",
		"model":                     "openai/gpt-4",
		"cuisines":                  "Italian, ,Thai",
		"signal.interests.entities": "a,b",
		"filter.price_level.max":    3.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "place", input.EntityType)
	assert.Equal(t, 5, input.Take)
	assert.Equal(t, "date night", input.UserQuery)
	assert.Equal(t, "openai/gpt-4", input.Model)
	assert.Equal(t, []string{"Italian", "Thai"}, input.Params["cuisines"])
	assert.Equal(t, []string{"a", "b"}, input.Params["signal.interests.entities"])
	assert.Equal(t, 3.0, input.Params["filter.price_level.max"])
	assert.NotContains(t, input.Params, "take")
	assert.NotContains(t, input.Params, "entityType")
}

func TestInputFromVariables_InvalidTake(t *testing.T) {
	for _, take := range []interface{}{-1.0, 2.5, "ten", true} {
		_, err := InputFromVariables(map[string]interface{}{"take": take})
		require.Error(t, err, "take=%v", take)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	}

	input, err := InputFromVariables(map[string]interface{}{"take": "12"})
	require.NoError(t, err)
	assert.Equal(t, 12, input.Take)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, runlog.Run) error {
	return errors.New("run log unavailable")
}

func (failingRecorder) Recent(context.Context, int) ([]runlog.Run, error) {
	return nil, errors.New("run log unavailable")
}

func TestExecute_RecorderFailureDoesNotFailRun(t *testing.T) {
	u := newUpstreams(t, `[{"name":"Heat"}]`, http.StatusOK)
	h := createTestHandler(t, u, failingRecorder{}, nil)

	out, err := h.Execute(context.Background(), &Input{
		EntityType: "movie",
		Params:     map[string]interface{}{"genre": 1984.0},
	})
	require.NoError(t, err)
	assert.Equal(t, StageDone, out.Stage)
	assert.Contains(t, u.query(), "filter.tags=urn%3Atag%3Agenre%3Amedia%3A1984")
}

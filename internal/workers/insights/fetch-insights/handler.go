package fetchinsights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "qfusion/internal/common/errors"
	httpclient "qfusion/internal/common/http"
	"qfusion/internal/common/logger"
	"qfusion/internal/common/metrics"
	"qfusion/internal/models"
	translateparameters "qfusion/internal/workers/insights/translate-parameters"
)

const (
	TaskType     = "fetch-insights"
	ServiceName  = "insights"
	apiKeyHeader = "x-api-key"
)

type Handler struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		client: httpclient.NewClient(config.Timeout),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Fetch runs one insights query. It never retries; any failure is returned as a
// *errors.StandardError.
func (h *Handler) Fetch(ctx context.Context, desc models.EntityTypeDescriptor, query translateparameters.TranslatedQuery) ([]ResultItem, error) {
	if strings.TrimSpace(h.config.APIKey) == "" {
		return nil, apperrors.NewMissingCredentialError(ServiceName)
	}

	requestURL := h.buildURL(query)
	resp, err := h.client.Get(ctx, requestURL, map[string]string{apiKeyHeader: h.config.APIKey})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(ServiceName, metrics.StatusClass(0)).Inc()
		return nil, apperrors.NewUpstreamRequestFailedError(ServiceName, err)
	}
	metrics.UpstreamRequests.WithLabelValues(ServiceName, metrics.StatusClass(resp.StatusCode)).Inc()

	if !resp.OK() {
		h.logger.Warn("insights request rejected", map[string]interface{}{
			"entityType": desc.Key(),
			"status":     resp.StatusCode,
		})
		return nil, apperrors.NewUpstreamStatusError(ServiceName, resp.StatusCode, string(resp.Body))
	}

	var body insightsResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, apperrors.NewUpstreamRequestFailedError(ServiceName, fmt.Errorf("decode response: %w", err))
	}

	items := []ResultItem{}
	if body.Results != nil && body.Results.Entities != nil {
		items = body.Results.Entities
	}

	metrics.ResultItems.WithLabelValues(desc.Key()).Observe(float64(len(items)))
	h.logger.Info("insights query completed", map[string]interface{}{
		"entityType":  desc.Key(),
		"resultCount": len(items),
	})
	return items, nil
}

func (h *Handler) buildURL(query translateparameters.TranslatedQuery) string {
	sep := "?"
	if strings.Contains(h.config.BaseURL, "?") {
		sep = "&"
	}
	return h.config.BaseURL + sep + query.Encode()
}

package translateparameters

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"qfusion/internal/common/logger"
	"qfusion/internal/models"
)

const TaskType = "translate-parameters"

var ErrMissingRequiredParameter = errors.New("MISSING_REQUIRED_PARAMETER")

type Handler struct {
	config *Config
	logger logger.Logger
	rules  []rewriteRule
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		rules:  defaultRules(),
	}
}

// ResolveTake substitutes the configured default for an unset take.
func (h *Handler) ResolveTake(take int) int {
	if take <= 0 {
		return h.config.DefaultTake
	}
	return take
}

// CheckRequired fails with *RequiredParameterError for the first required raw
// parameter that is missing or blank.
func (h *Handler) CheckRequired(desc models.EntityTypeDescriptor, raw map[string]interface{}) error {
	for _, name := range desc.RequiredRawParams {
		if isBlank(raw[name]) {
			return &RequiredParameterError{Param: name}
		}
	}
	return nil
}

// Translate maps a raw parameter bag onto the query the insights API accepts for desc.
// Every emitted name is filter.type or one of desc's allowed parameters.
func (h *Handler) Translate(desc models.EntityTypeDescriptor, raw map[string]interface{}, take, offset int) (TranslatedQuery, error) {
	if err := h.CheckRequired(desc, raw); err != nil {
		return TranslatedQuery{}, err
	}

	var q TranslatedQuery
	q.Set(models.ParamFilterType, desc.Tag)

	consumed := map[string]bool{models.ParamFilterType: true}
	for _, rule := range h.rules {
		value, present := raw[rule.source]
		if !present || !rule.applies(desc) {
			continue
		}
		consumed[rule.source] = true
		if tag, ok := rule.rewrite(value); ok && desc.Allows(rule.target) {
			q.Set(rule.target, tag)
		}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		if !consumed[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if !desc.Allows(name) {
			h.logger.Debug("dropping unrecognized parameter", map[string]interface{}{
				"entityType": desc.Key(),
				"param":      name,
			})
			continue
		}
		if value, ok := serialize(raw[name]); ok {
			q.Set(name, value)
		}
	}

	if take > 0 && desc.Allows(models.ParamTake) {
		q.Set(models.ParamTake, strconv.Itoa(take))
	}
	if offset > 0 && desc.Allows(models.ParamOffset) {
		q.Set(models.ParamOffset, strconv.Itoa(offset))
	}

	return q, nil
}

func isBlank(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string, []interface{}:
		return len(stringList(t)) == 0
	default:
		_, ok := scalarString(t)
		return !ok
	}
}

// serialize renders a raw value; ok is false for values that carry nothing to send.
func serialize(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case []string, []interface{}:
		parts := make([]string, 0)
		for _, item := range toInterfaces(t) {
			if s, ok := serialize(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(t), true
	}
}

func toInterfaces(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

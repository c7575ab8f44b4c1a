package summarizeentity

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "qfusion/internal/common/errors"
	"qfusion/internal/models"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
)

// Stage is a step of the summary lifecycle.
type Stage string

const (
	StageValidating  Stage = "Validating"
	StageFetching    Stage = "Fetching"
	StageSummarizing Stage = "Summarizing"
	StageShaping     Stage = "Shaping"
	StageDone        Stage = "Done"
	StageErrored     Stage = "Errored"
)

const (
	varEntityType = "entityType"
	varTake       = "take"
	varOffset     = "offset"
	varUserQuery  = "userQuery"
	varModel      = "model"
)

// csvParams may arrive as comma-separated strings and are split before translation.
var csvParams = []string{models.ParamCuisines, models.ParamInterestEntities}

type Input struct {
	EntityType string                 `json:"entityType"`
	Params     map[string]interface{} `json:"params"`
	Take       int                    `json:"take"`
	Offset     int                    `json:"offset"`
	UserQuery  string                 `json:"userQuery"`
	Model      string                 `json:"model"`
}

type Output struct {
	RunID  string                      `json:"runId"`
	Stage  Stage                       `json:"stage"`
	Result buildresponse.SummaryResult `json:"result"`
}

// InputFromVariables reads a flat variable bag: the envelope keys (entityType, take,
// offset, userQuery, model) are lifted out and everything else becomes a raw parameter.
func InputFromVariables(vars map[string]interface{}) (*Input, error) {
	input := &Input{Params: make(map[string]interface{}, len(vars))}

	for k, v := range vars {
		switch k {
		case varEntityType:
			input.EntityType, _ = v.(string)
		case varUserQuery:
			input.UserQuery, _ = v.(string)
		case varModel:
			input.Model, _ = v.(string)
		case varTake:
			n, err := toInt(v)
			if err != nil {
				return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("take: %v", err))
			}
			input.Take = n
		case varOffset:
			n, err := toInt(v)
			if err != nil {
				return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("offset: %v", err))
			}
			input.Offset = n
		default:
			input.Params[k] = v
		}
	}

	for _, name := range csvParams {
		if s, ok := input.Params[name].(string); ok {
			input.Params[name] = splitCSV(s)
		}
	}
	return input, nil
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if t != float64(int(t)) || t < 0 {
			return 0, fmt.Errorf("must be a non-negative integer, got %v", t)
		}
		return int(t), nil
	case int:
		if t < 0 {
			return 0, fmt.Errorf("must be a non-negative integer, got %d", t)
		}
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("must be a non-negative integer, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

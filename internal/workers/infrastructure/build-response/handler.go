package buildresponse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"qfusion/internal/common/logger"
	"qfusion/internal/common/validation"
	"qfusion/internal/models"
)

const (
	TaskType      = "build-response"
	UntitledTitle = "Untitled"
)

var ErrResponseValidationFailed = errors.New("RESPONSE_VALIDATION_FAILED")

var responseSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "ok": {"enum": [true]},
    "summary": {"type": "string"}
  },
  "patternProperties": {
    "Count$": {"type": "integer", "minimum": 0},
    "Titles$": {"type": "string"}
  },
  "required": ["ok", "summary"],
  "minProperties": 4,
  "maxProperties": 4
}`)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	result := Shape(input.Label, input.Items, input.TitleField, input.Summary)

	if h.config.ValidatePayload {
		vr, err := responseSchema.Validate(result.Map())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseValidationFailed, err)
		}
		if !vr.Valid {
			h.logger.Error("shaped response failed schema validation", map[string]interface{}{
				"label":  input.Label,
				"errors": vr.Summary(),
			})
			return nil, fmt.Errorf("%w: %s", ErrResponseValidationFailed, vr.Summary())
		}
	}

	return &Output{Result: result}, nil
}

// Shape builds the response for one category. Count is len(items) and titles keep
// the API order.
func Shape(label string, items []map[string]interface{}, titleField, summary string) SummaryResult {
	prefix := KeyPrefix(label)

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = TitleOf(item, titleField)
	}

	return SummaryResult{
		OK:        true,
		CountKey:  prefix + "Count",
		TitlesKey: prefix + "Titles",
		Count:     len(items),
		Titles:    strings.Join(titles, ", "),
		Summary:   summary,
	}
}

// KeyPrefix lower-cases label and strips whitespace: "TV Show" -> "tvshow".
func KeyPrefix(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, label)
}

// TitleOf reads titleField, then "name", then falls back to "Untitled".
func TitleOf(item map[string]interface{}, titleField string) string {
	for _, field := range []string{titleField, models.DefaultTitleField} {
		if field == "" {
			continue
		}
		if s, ok := item[field].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return UntitledTitle
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperrors "qfusion/internal/common/errors"
	"qfusion/internal/common/validation"
	"qfusion/internal/models"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
	summarizeentity "qfusion/internal/workers/insights/summarize-entity"
)

const maxBodyBytes = 1 << 20

// envelopeSchema checks the request body shape; per-category rules are enforced by the translator.
var envelopeSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"take":      {"type": "integer", "minimum": 0},
		"offset":    {"type": "integer", "minimum": 0},
		"userQuery": {"type": "string"},
		"model":     {"type": "string"}
	},
	"additionalProperties": {
		"type": ["string", "number", "boolean", "array", "null"],
		"items": {"type": ["string", "number", "boolean"]}
	}
}`)

func (a *API) summaryHandler(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	vr, err := envelopeSchema.Validate(body)
	if err != nil {
		a.writeError(w, apperrors.NewInvalidRequestError(err.Error()))
		return
	}
	if !vr.Valid {
		a.writeError(w, apperrors.NewInvalidRequestError(vr.Summary()))
		return
	}

	body["entityType"] = mux.Vars(r)["entity"]
	input, err := summarizeentity.InputFromVariables(body)
	if err != nil {
		a.writeError(w, err)
		return
	}

	out, err := a.summary.Execute(r.Context(), input)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("X-Run-Id", out.RunID)
	writeJSON(w, http.StatusOK, out.Result)
}

// genreHandler serves the raw movie lookup kept for older clients.
func (a *API) genreHandler(w http.ResponseWriter, r *http.Request) {
	genre := strings.ToLower(mux.Vars(r)["genre"])
	if !models.IsLegacyGenre(genre) {
		writeJSON(w, http.StatusBadRequest, failure("Invalid genre", string(apperrors.ErrCodeValidationFailed)))
		return
	}

	desc, err := models.Describe(string(models.EntityTypeMovie))
	if err != nil {
		a.writeError(w, err)
		return
	}
	query, err := a.translator.Translate(desc, map[string]interface{}{models.ParamGenre: genre}, a.translator.ResolveTake(0), 0)
	if err != nil {
		a.writeError(w, err)
		return
	}

	movies, err := a.insights.Fetch(r.Context(), desc, query)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"genre":  genre,
		"movies": movies,
	})
}

func decodeBody(r *http.Request) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.NewInvalidRequestError("invalid JSON body: " + err.Error())
	}
	if body == nil {
		body = map[string]interface{}{}
	}
	return body, nil
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"message": stdErr.Message,
			"details": stdErr.Details,
		})
	}
	writeJSON(w, status, failure(stdErr.Message, string(stdErr.Code)))
}

func failure(msg, code string) buildresponse.FailureResponse {
	return buildresponse.FailureResponse{OK: false, Error: msg, Code: code}
}

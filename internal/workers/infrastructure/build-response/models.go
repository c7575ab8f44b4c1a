package buildresponse

import (
	"encoding/json"
	"fmt"
)

type Input struct {
	Label      string                   `json:"label"`
	Items      []map[string]interface{} `json:"items"`
	TitleField string                   `json:"titleField"`
	Summary    string                   `json:"summary"`
}

type Output struct {
	Result SummaryResult `json:"result"`
}

// SummaryResult serializes with category-specific keys:
// {"ok":true,"movieCount":2,"movieTitles":"A, B","summary":"..."}.
type SummaryResult struct {
	OK        bool
	CountKey  string
	TitlesKey string
	Count     int
	Titles    string
	Summary   string
}

func (r SummaryResult) Map() map[string]interface{} {
	return map[string]interface{}{
		"ok":        r.OK,
		r.CountKey:  r.Count,
		r.TitlesKey: r.Titles,
		"summary":   r.Summary,
	}
}

func (r SummaryResult) MarshalJSON() ([]byte, error) {
	if r.CountKey == "" || r.TitlesKey == "" {
		return nil, fmt.Errorf("summary result has no category keys")
	}
	return json.Marshal(r.Map())
}

// FailureResponse is the uniform error body.
type FailureResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

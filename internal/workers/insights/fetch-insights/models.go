package fetchinsights

// ResultItem is one entity as returned by the insights API. Only the title-like
// fields are interpreted downstream.
type ResultItem = map[string]interface{}

type insightsResponse struct {
	Success bool `json:"success"`
	Results *struct {
		Entities []ResultItem `json:"entities"`
	} `json:"results"`
}

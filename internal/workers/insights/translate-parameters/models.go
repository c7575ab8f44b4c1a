package translateparameters

import (
	"net/url"
	"strings"
)

// Param is one emitted query parameter.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TranslatedQuery is an ordered set of parameters: setting an existing name
// overwrites its value in place.
type TranslatedQuery struct {
	params []Param
}

func (q *TranslatedQuery) Set(name, value string) {
	for i := range q.params {
		if q.params[i].Name == name {
			q.params[i].Value = value
			return
		}
	}
	q.params = append(q.params, Param{Name: name, Value: value})
}

func (q TranslatedQuery) Get(name string) (string, bool) {
	for _, p := range q.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (q TranslatedQuery) Len() int {
	return len(q.params)
}

func (q TranslatedQuery) Params() []Param {
	out := make([]Param, len(q.params))
	copy(out, q.params)
	return out
}

func (q TranslatedQuery) Names() []string {
	out := make([]string, len(q.params))
	for i, p := range q.params {
		out[i] = p.Name
	}
	return out
}

// Map flattens the query for logging and the run log.
func (q TranslatedQuery) Map() map[string]string {
	out := make(map[string]string, len(q.params))
	for _, p := range q.params {
		out[p.Name] = p.Value
	}
	return out
}

// Encode renders the query string in emission order.
func (q TranslatedQuery) Encode() string {
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// RequiredParameterError reports a required raw parameter that is missing or blank.
type RequiredParameterError struct {
	Param string
}

func (e *RequiredParameterError) Error() string {
	return ErrMissingRequiredParameter.Error() + ": " + e.Param
}

func (e *RequiredParameterError) Unwrap() error {
	return ErrMissingRequiredParameter
}

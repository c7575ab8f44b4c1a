package translateparameters

import (
	"strings"

	"qfusion/internal/models"
)

const (
	genreTagPrefix   = "urn:tag:genre:media:"
	cuisineTagPrefix = "urn:tag:genre:place:restaurant:"
)

// rewriteRule turns a virtual raw parameter into a real one. Rules run in order
// before the generic allow-list pass; the source name is never forwarded verbatim.
type rewriteRule struct {
	source  string
	target  string
	applies func(desc models.EntityTypeDescriptor) bool
	rewrite func(raw interface{}) (string, bool)
}

func defaultRules() []rewriteRule {
	return []rewriteRule{
		{
			source:  models.ParamGenre,
			target:  models.ParamFilterTags,
			applies: forType(models.EntityTypeMovie),
			rewrite: genreTag,
		},
		{
			source:  models.ParamCuisines,
			target:  models.ParamFilterTags,
			applies: forType(models.EntityTypePlace),
			rewrite: cuisineTags,
		},
	}
}

func forType(t models.EntityType) func(models.EntityTypeDescriptor) bool {
	return func(d models.EntityTypeDescriptor) bool { return d.Type == t }
}

// genreTag accepts a scalar (numbers and bools are stringified) or a list of genres.
func genreTag(raw interface{}) (string, bool) {
	switch raw.(type) {
	case []string, []interface{}:
		return prefixedTags(genreTagPrefix, stringList(raw))
	}
	s, ok := scalarString(raw)
	if !ok {
		return "", false
	}
	return genreTagPrefix + strings.ToLower(s), true
}

// scalarString renders a single string, number or bool the way the generic pass does,
// trimmed. Lists and blank values report false.
func scalarString(raw interface{}) (string, bool) {
	switch raw.(type) {
	case []string, []interface{}:
		return "", false
	}
	s, ok := serialize(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func cuisineTags(raw interface{}) (string, bool) {
	return prefixedTags(cuisineTagPrefix, stringList(raw))
}

func prefixedTags(prefix string, values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	tags := make([]string, len(values))
	for i, v := range values {
		tags[i] = prefix + strings.ToLower(v)
	}
	return strings.Join(tags, ","), true
}

// stringList accepts a CSV string, []string or []interface{} and returns the trimmed
// non-blank entries.
func stringList(raw interface{}) []string {
	result := []string{}

	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	}

	for _, s := range items {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

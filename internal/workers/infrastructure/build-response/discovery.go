package buildresponse

import (
	"math"
	"sort"
	"strings"
)

// DiscoverKey finds the key a consumer should read: exactKey when it holds a truthy
// value, else the first key (in sorted order) containing substring case-insensitively,
// else exactKey.
func DiscoverKey(obj map[string]interface{}, exactKey, substring string) string {
	if truthy(obj[exactKey]) {
		return exactKey
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	needle := strings.ToLower(substring)
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k), needle) {
			return k
		}
	}
	return exactKey
}

// DiscoverValue reads obj through DiscoverKey and falls back to def when the
// discovered value is falsy.
func DiscoverValue(obj map[string]interface{}, exactKey, substring string, def interface{}) interface{} {
	v := obj[DiscoverKey(obj, exactKey, substring)]
	if !truthy(v) {
		return def
	}
	return v
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

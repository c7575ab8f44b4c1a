package buildresponse

import (
	"context"
	"encoding/json"
	"testing"

	"qfusion/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func TestShape_CategoryKeys(t *testing.T) {
	tests := []struct {
		label      string
		items      []map[string]interface{}
		wantCount  string
		wantTitles string
		titles     string
	}{
		{
			label:      "TV Show",
			items:      []map[string]interface{}{{"name": "A"}, {"name": "B"}},
			wantCount:  "tvshowCount",
			wantTitles: "tvshowTitles",
			titles:     "A, B",
		},
		{
			label:      "Movie",
			items:      []map[string]interface{}{{"name": "Heat"}},
			wantCount:  "movieCount",
			wantTitles: "movieTitles",
			titles:     "Heat",
		},
		{
			label:      "Destination",
			items:      []map[string]interface{}{},
			wantCount:  "destinationCount",
			wantTitles: "destinationTitles",
			titles:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			r := Shape(tt.label, tt.items, "name", "sum")
			assert.True(t, r.OK)
			assert.Equal(t, tt.wantCount, r.CountKey)
			assert.Equal(t, tt.wantTitles, r.TitlesKey)
			assert.Equal(t, len(tt.items), r.Count)
			assert.Equal(t, tt.titles, r.Titles)
			assert.Equal(t, "sum", r.Summary)
		})
	}
}

func TestShape_TitleFallbackChain(t *testing.T) {
	items := []map[string]interface{}{
		{"title": "Primary", "name": "Secondary"},
		{"name": "OnlyName"},
		{"title": "  ", "name": "BlankTitle"},
		{"id": 7},
		{"title": 42},
	}

	r := Shape("Book", items, "title", "")
	assert.Equal(t, "Primary, OnlyName, BlankTitle, Untitled, Untitled", r.Titles)
	assert.Equal(t, 5, r.Count)
}

func TestSummaryResult_MarshalJSON(t *testing.T) {
	r := Shape("TV Show", []map[string]interface{}{{"name": "A"}, {"name": "B"}}, "name", "Both are great.")

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"tvshowCount":2,"tvshowTitles":"A, B","summary":"Both are great."}`, string(data))

	_, err = json.Marshal(SummaryResult{OK: true})
	assert.Error(t, err)
}

func TestHandler_Execute(t *testing.T) {
	h := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		Label:      "Place",
		Items:      []map[string]interface{}{{"name": "Nobu"}, {"name": "Sushi Saito"}},
		TitleField: "name",
		Summary:    "Two sushi spots.",
	})
	require.NoError(t, err)
	assert.Equal(t, "placeCount", out.Result.CountKey)
	assert.Equal(t, 2, out.Result.Count)
	assert.Equal(t, "Nobu, Sushi Saito", out.Result.Titles)
}

func TestResponseSchema_RejectsMalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{name: "ok false", payload: map[string]interface{}{"ok": false, "xCount": 1, "xTitles": "a", "summary": ""}},
		{name: "negative count", payload: map[string]interface{}{"ok": true, "xCount": -1, "xTitles": "a", "summary": ""}},
		{name: "missing summary", payload: map[string]interface{}{"ok": true, "xCount": 1, "xTitles": "a"}},
		{name: "titles not string", payload: map[string]interface{}{"ok": true, "xCount": 1, "xTitles": []string{"a"}, "summary": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr, err := responseSchema.Validate(tt.payload)
			require.NoError(t, err)
			assert.False(t, vr.Valid)
		})
	}

	vr, err := responseSchema.Validate(Shape("Artist", nil, "name", "").Map())
	require.NoError(t, err)
	assert.True(t, vr.Valid, vr.Summary())
}

func TestDiscoverValue_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		obj       map[string]interface{}
		exact     string
		substring string
		def       interface{}
		want      interface{}
	}{
		{
			name:      "exact key wins",
			obj:       map[string]interface{}{"movieCount": 3.0, "otherCount": 9.0},
			exact:     "movieCount",
			substring: "count",
			def:       0,
			want:      3.0,
		},
		{
			name:      "fuzzy count key",
			obj:       map[string]interface{}{"ok": true, "weirdCountValue": 4.0, "specialTitleList": "A, B"},
			exact:     "movieCount",
			substring: "count",
			def:       0,
			want:      4.0,
		},
		{
			name:      "fuzzy title key",
			obj:       map[string]interface{}{"ok": true, "weirdCountValue": 4.0, "specialTitleList": "A, B"},
			exact:     "movieTitles",
			substring: "title",
			def:       "",
			want:      "A, B",
		},
		{
			name:      "case insensitive",
			obj:       map[string]interface{}{"TOTAL_COUNT": 2.0},
			exact:     "bookCount",
			substring: "count",
			def:       0,
			want:      2.0,
		},
		{
			name:      "falsy exact key shadows later fuzzy keys",
			obj:       map[string]interface{}{"movieCount": 0.0, "zCount": 5.0},
			exact:     "movieCount",
			substring: "count",
			def:       0,
			want:      0,
		},
		{
			name:      "default when nothing matches",
			obj:       map[string]interface{}{"ok": true, "summary": "x"},
			exact:     "movieTitles",
			substring: "title",
			def:       "",
			want:      "",
		},
		{
			name:      "first sorted fuzzy key",
			obj:       map[string]interface{}{"bTitle": "second", "aTitle": "first"},
			exact:     "movieTitles",
			substring: "title",
			def:       "",
			want:      "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscoverValue(tt.obj, tt.exact, tt.substring, tt.def))
		})
	}
}

func TestDiscoverKey(t *testing.T) {
	obj := map[string]interface{}{"weirdCountValue": 1.0}
	assert.Equal(t, "weirdCountValue", DiscoverKey(obj, "movieCount", "count"))
	assert.Equal(t, "movieTitles", DiscoverKey(obj, "movieTitles", "title"))
}

package models

import (
	"sort"
	"strings"

	apperrors "qfusion/internal/common/errors"
)

// EntityType is the closed set of recommendation categories the insights API serves.
type EntityType string

const (
	EntityTypeArtist      EntityType = "artist"
	EntityTypeBook        EntityType = "book"
	EntityTypeBrand       EntityType = "brand"
	EntityTypeDestination EntityType = "destination"
	EntityTypeMovie       EntityType = "movie"
	EntityTypePerson      EntityType = "person"
	EntityTypePlace       EntityType = "place"
	EntityTypePodcast     EntityType = "podcast"
	EntityTypeTVShow      EntityType = "tv_show"
)

const (
	ParamFilterType       = "filter.type"
	ParamFilterTags       = "filter.tags"
	ParamTake             = "take"
	ParamOffset           = "offset"
	ParamGenre            = "genre"
	ParamCuisines         = "cuisines"
	ParamInterestEntities = "signal.interests.entities"

	DefaultTitleField = "name"
)

// EntityTypeDescriptor describes one category. Descriptors are built once and never mutated;
// AllowedParams must be read through Allows and Params.
type EntityTypeDescriptor struct {
	Type              EntityType
	Label             string
	Tag               string
	TitleField        string
	RequiredRawParams []string

	allowed map[string]struct{}
}

// Key is the catalog key, e.g. "tv_show".
func (d EntityTypeDescriptor) Key() string {
	return string(d.Type)
}

// Endpoint is the web path segment for the category ("tv_show" -> "tvshow").
func (d EntityTypeDescriptor) Endpoint() string {
	return normalizeKey(string(d.Type))
}

func (d EntityTypeDescriptor) Allows(param string) bool {
	_, ok := d.allowed[param]
	return ok
}

// Params returns the allowed parameter names sorted.
func (d EntityTypeDescriptor) Params() []string {
	out := make([]string, 0, len(d.allowed))
	for p := range d.allowed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func newDescriptor(t EntityType, label string, required []string, params ...string) EntityTypeDescriptor {
	allowed := make(map[string]struct{}, len(params))
	for _, p := range params {
		allowed[p] = struct{}{}
	}
	return EntityTypeDescriptor{
		Type:              t,
		Label:             label,
		Tag:               "urn:entity:" + string(t),
		TitleField:        DefaultTitleField,
		RequiredRawParams: required,
		allowed:           allowed,
	}
}

var catalog = []EntityTypeDescriptor{
	newDescriptor(EntityTypeArtist, "Artist", nil,
		"bias.trends", "filter.exclude.entities", "filter.parents.types",
		"filter.popularity.min", "filter.popularity.max", "filter.exclude.tags",
		ParamOffset, "signal.demographics.age", ParamTake),
	newDescriptor(EntityTypeBook, "Book", nil,
		"filter.publication_year.min", "filter.publication_year.max",
		"filter.popularity.min", "filter.popularity.max", "filter.exclude.tags", ParamTake),
	newDescriptor(EntityTypeBrand, "Brand", nil,
		"bias.trends", "filter.popularity.min", "filter.popularity.max", ParamTake),
	newDescriptor(EntityTypeDestination, "Destination", []string{ParamInterestEntities},
		"filter.geocode.name", "filter.geocode.country_code",
		"filter.popularity.min", "filter.popularity.max", ParamInterestEntities, ParamTake),
	newDescriptor(EntityTypeMovie, "Movie", []string{ParamGenre},
		ParamFilterTags, "filter.release_year.min", "filter.release_year.max",
		"filter.content_rating", "filter.popularity.min", "filter.popularity.max", ParamTake),
	newDescriptor(EntityTypePerson, "Person", nil,
		"filter.gender", "filter.date_of_birth.min", "filter.date_of_birth.max",
		"filter.popularity.min", ParamTake),
	newDescriptor(EntityTypePlace, "Place", []string{ParamCuisines},
		ParamFilterTags, "filter.geocode.name", "filter.price_level.min",
		"filter.price_level.max", "filter.popularity.min", ParamTake),
	newDescriptor(EntityTypePodcast, "Podcast", nil,
		"filter.popularity.min", ParamTake),
	newDescriptor(EntityTypeTVShow, "TV Show", nil,
		"filter.release_year.min", "filter.release_year.max", "filter.popularity.min", ParamTake),
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, d := range catalog {
		idx[normalizeKey(string(d.Type))] = i
	}
	return idx
}()

// Describe looks up a descriptor. "tv_show", "tvshow", "TV Show" and "tv-show" all
// resolve to the same entry.
func Describe(key string) (EntityTypeDescriptor, error) {
	i, ok := catalogIndex[normalizeKey(key)]
	if !ok {
		return EntityTypeDescriptor{}, apperrors.NewUnknownEntityTypeError(key)
	}
	return catalog[i], nil
}

// EntityTypes lists every descriptor in catalog order.
func EntityTypes() []EntityTypeDescriptor {
	out := make([]EntityTypeDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch r {
		case '_', '-', ' ', '\t', '\n':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Package viewstate computes what a list view shows from the raw entries of
// that list and the view's query parameters (mediaType, search, filter, sort).
// The query string is the only source of truth: Params is parsed from it on
// every request and encoded back for shareable links.
package viewstate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/ratings"
	"github.com/voyagen/watchvault/internal/validator"
)

// Query parameter names.
const (
	ParamMediaType = "mediaType"
	ParamSearch    = "search"
	ParamSort      = "sort"
	ParamFilter    = "filter"
)

// SortKey is a field a list can be ordered by.
type SortKey int

const (
	SortTitle SortKey = iota
	SortYear
	SortDateWatched
	SortRating
	SortRTRating
	SortIMDbRating
)

var sortKeys = []SortKey{SortTitle, SortYear, SortDateWatched, SortRating, SortRTRating, SortIMDbRating}

// Param returns the name used for the key in the sort query parameter.
func (k SortKey) Param() string {
	switch k {
	case SortTitle:
		return "title"
	case SortYear:
		return "year"
	case SortDateWatched:
		return "dateWatched"
	case SortRating:
		return "rating"
	case SortRTRating:
		return "rtRating"
	case SortIMDbRating:
		return "imdbRating"
	}
	panic(fmt.Sprintf("viewstate: unknown sort key %d", int(k)))
}

// ServerSortable reports whether the media-list service can order by k. The
// external ratings live inside a serialized blob the service cannot index.
func (k SortKey) ServerSortable() bool {
	switch k {
	case SortTitle, SortYear, SortDateWatched, SortRating:
		return true
	case SortRTRating, SortIMDbRating:
		return false
	}
	panic(fmt.Sprintf("viewstate: unknown sort key %d", int(k)))
}

// RatingSource returns the external rating source a client-side key sorts by.
func (k SortKey) RatingSource() (ratings.Source, bool) {
	switch k {
	case SortRTRating:
		return ratings.SourceRottenTomatoes, true
	case SortIMDbRating:
		return ratings.SourceIMDb, true
	case SortTitle, SortYear, SortDateWatched, SortRating:
		return 0, false
	}
	panic(fmt.Sprintf("viewstate: unknown sort key %d", int(k)))
}

// ParseSortKey looks a key up by its query parameter name.
func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range sortKeys {
		if k.Param() == s {
			return k, true
		}
	}
	return 0, false
}

// Sort is a sort key plus direction. On the wire a leading "-" means descending.
type Sort struct {
	Key  SortKey
	Desc bool
}

// DefaultSort is used when the sort parameter is absent: newest watched first.
var DefaultSort = Sort{Key: SortDateWatched, Desc: true}

// ParseSort parses "[-]field".
func ParseSort(s string) (Sort, error) {
	desc := strings.HasPrefix(s, "-")
	name := strings.TrimPrefix(s, "-")
	k, ok := ParseSortKey(name)
	if !ok {
		return Sort{}, fmt.Errorf("unknown sort field %q", name)
	}
	return Sort{Key: k, Desc: desc}, nil
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Key.Param()
	}
	return s.Key.Param()
}

// Toggle flips the direction and keeps the key.
func (s Sort) Toggle() Sort {
	s.Desc = !s.Desc
	return s
}

// Params is the view state carried in the query string.
type Params struct {
	MediaType models.MediaType // empty or "all" means every type
	Search    string
	Filter    models.Tag // TagAll means no tag filter
	Sort      Sort
}

// DefaultParams is the state of a view with an empty query string.
func DefaultParams() Params {
	return Params{Filter: models.TagAll, Sort: DefaultSort}
}

// ParseParams reads the view state from q. Invalid values are recorded in v
// and replaced by their defaults.
func ParseParams(q url.Values, v *validator.Validator) Params {
	p := DefaultParams()

	switch mt := models.MediaType(q.Get(ParamMediaType)); mt {
	case "", models.MediaTypeAll:
	case models.MediaTypeMovie, models.MediaTypeSeries:
		p.MediaType = mt
	default:
		v.AddError(ParamMediaType, "must be one of all, movie or series")
	}

	p.Search = strings.TrimSpace(q.Get(ParamSearch))

	switch tag := models.Tag(q.Get(ParamFilter)); {
	case tag == "" || tag == models.TagAll:
	case tag.Valid():
		p.Filter = tag
	default:
		v.AddError(ParamFilter, "must be all or a known tag")
	}

	if raw := q.Get(ParamSort); raw != "" {
		s, err := ParseSort(raw)
		if err != nil {
			v.AddError(ParamSort, "invalid sort value")
		} else {
			p.Sort = s
		}
	}

	return p
}

// Values encodes p back into query parameters. Defaults for mediaType and
// filter are left out; sort is always present.
func (p Params) Values() url.Values {
	q := url.Values{}
	if p.MediaType != "" && p.MediaType != models.MediaTypeAll {
		q.Set(ParamMediaType, string(p.MediaType))
	}
	if p.Search != "" {
		q.Set(ParamSearch, p.Search)
	}
	if p.Filter != "" && p.Filter != models.TagAll {
		q.Set(ParamFilter, string(p.Filter))
	}
	q.Set(ParamSort, p.Sort.String())
	return q
}

// FiltersApplied reports whether search text or a tag filter narrows the list.
func (p Params) FiltersApplied() bool {
	return p.Search != "" || (p.Filter != "" && p.Filter != models.TagAll)
}

// ClearFilters drops search text and the tag filter, keeping type and sort.
func (p Params) ClearFilters() Params {
	p.Search = ""
	p.Filter = models.TagAll
	return p
}

// ServerSort returns the sort to pass to the media-list service, if the
// service can handle it.
func (p Params) ServerSort() (Sort, bool) {
	if p.Sort.Key.ServerSortable() {
		return p.Sort, true
	}
	return Sort{}, false
}

// SortOption is one entry of a list's sort dropdown.
type SortOption struct {
	Label string
	Key   SortKey
}

// SortOptions lists the sort keys offered for a list. The to-watch list has no
// user rating but can be ordered by external ratings.
func SortOptions(kind models.ListKind) []SortOption {
	switch kind {
	case models.ListToWatch:
		return []SortOption{
			{"Title", SortTitle},
			{"Release Date", SortYear},
			{"Date Added", SortDateWatched},
			{"RT Rating", SortRTRating},
			{"IMDb Rating", SortIMDbRating},
		}
	case models.ListWatched:
		return []SortOption{
			{"Title", SortTitle},
			{"Release Date", SortYear},
			{"Date Watched", SortDateWatched},
			{"Our Rating", SortRating},
		}
	}
	return []SortOption{{"Title", SortTitle}}
}

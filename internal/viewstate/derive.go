package viewstate

import (
	"cmp"
	"slices"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/ratings"
)

// View is the ordered subset of a list to render plus the numbers for the
// "Showing N out of M" banner.
type View struct {
	Items         []models.Media
	TotalFiltered int
	Total         int
}

// Empty reports whether there is nothing to render.
func (v View) Empty() bool {
	return len(v.Items) == 0
}

// Derive applies the search filter, the tag filter and, for keys the service
// cannot sort by, the client-side sort. Entries sorted by the service keep
// their order. items is not modified.
func Derive(items []models.Media, p Params) View {
	if len(items) == 0 {
		return View{Items: []models.Media{}}
	}

	out := FilterSearch(items, p.Search)
	out = FilterTag(out, p.Filter)

	if src, ok := p.Sort.Key.RatingSource(); ok {
		SortByRating(out, src, p.Sort.Desc)
	}

	return View{Items: out, TotalFiltered: len(out), Total: len(items)}
}

// FilterSearch keeps entries whose title, date watched or year contains text,
// ignoring case. An empty text keeps everything.
func FilterSearch(items []models.Media, text string) []models.Media {
	out := make([]models.Media, 0, len(items))
	needle := strings.ToLower(strings.TrimSpace(text))
	for _, m := range items {
		if needle == "" || matchesSearch(m, needle) {
			out = append(out, m)
		}
	}
	return out
}

func matchesSearch(m models.Media, needle string) bool {
	return strings.Contains(strings.ToLower(m.Title), needle) ||
		strings.Contains(strings.ToLower(m.DateWatched), needle) ||
		strings.Contains(strings.ToLower(m.Year), needle)
}

// FilterTag keeps entries carrying tag. TagAll and the empty tag keep everything.
func FilterTag(items []models.Media, tag models.Tag) []models.Media {
	out := make([]models.Media, 0, len(items))
	for _, m := range items {
		if tag == "" || tag == models.TagAll || m.HasTag(tag) {
			out = append(out, m)
		}
	}
	return out
}

// SortByRating orders items in place by the external rating from src.
// Ascending puts entries without that rating first; descending is the exact
// reverse of the ascending order.
func SortByRating(items []models.Media, src ratings.Source, desc bool) {
	type scored struct {
		m     models.Media
		score float64
		has   bool
	}
	tmp := make([]scored, len(items))
	for i, m := range items {
		s, ok := ratings.Score(m.Ratings, src)
		tmp[i] = scored{m: m, score: s, has: ok}
	}
	slices.SortStableFunc(tmp, func(a, b scored) int {
		switch {
		case !a.has && !b.has:
			return 0
		case !a.has:
			return -1
		case !b.has:
			return 1
		}
		return cmp.Compare(a.score, b.score)
	})
	if desc {
		slices.Reverse(tmp)
	}
	for i := range tmp {
		items[i] = tmp[i].m
	}
}

// SortAll orders items in place by any key, including the ones the service
// normally sorts. Ties on service keys fall back to creation time in the same
// direction and then ascending id, like the service's ORDER BY.
func SortAll(items []models.Media, s Sort) {
	if src, ok := s.Key.RatingSource(); ok {
		SortByRating(items, src, s.Desc)
		return
	}
	field := fieldCompare(s.Key)
	slices.SortStableFunc(items, func(a, b models.Media) int {
		c := field(a, b)
		if c == 0 {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if s.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func fieldCompare(k SortKey) func(a, b models.Media) int {
	switch k {
	case SortTitle:
		return func(a, b models.Media) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortYear:
		return func(a, b models.Media) int { return cmp.Compare(a.Year, b.Year) }
	case SortDateWatched:
		return func(a, b models.Media) int { return cmp.Compare(a.DateWatched, b.DateWatched) }
	case SortRating:
		return func(a, b models.Media) int { return cmp.Compare(a.Rating, b.Rating) }
	case SortRTRating, SortIMDbRating:
		return func(a, b models.Media) int { return 0 }
	}
	panic("viewstate: unknown sort key")
}

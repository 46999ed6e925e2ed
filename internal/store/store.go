package store

import (
	"context"
	"errors"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
)

var (
	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrEditConflict is returned when the entry changed since it was read.
	ErrEditConflict = errors.New("edit conflict")
	// ErrAlreadyWatched is returned when moving an entry that is already in the watched list.
	ErrAlreadyWatched = errors.New("entry is already watched")
)

// Store defines persistence for list entries.
type Store interface {
	// ListMedia returns entries matching the filter, ordered by filter.Sort.
	ListMedia(ctx context.Context, filter MediaFilter) ([]models.Media, error)
	// GetMedia returns a single entry by id.
	GetMedia(ctx context.Context, id string) (*models.Media, error)
	// InsertMedia creates an entry and returns it with its generated fields set.
	InsertMedia(ctx context.Context, in models.MediaCreate) (*models.Media, error)
	// UpdateMedia applies a partial update and bumps the entry version.
	UpdateMedia(ctx context.Context, id string, fields models.MediaUpdate) (*models.Media, error)
	// DeleteMedia removes an entry.
	DeleteMedia(ctx context.Context, id string) error
	// MarkWatched moves a to-watch entry into the watched list in one step.
	MarkWatched(ctx context.Context, id string, in models.WatchedInput) (*models.Media, error)
}

// MediaFilter holds optional filters for listing entries.
type MediaFilter struct {
	Watched   *bool
	MediaType *models.MediaType
	Title     string // case-insensitive substring match on title
	Sort      string // "[-]column", must be in SortSafelist
}

// SortSafelist holds the sort values the store can order by.
var SortSafelist = []string{
	"title", "year", "dateWatched", "rating",
	"-title", "-year", "-dateWatched", "-rating",
}

// DefaultSort orders newest watched first.
const DefaultSort = "-dateWatched"

var sortColumns = map[string]string{
	"title":       "lower(title)",
	"year":        "year",
	"dateWatched": "date_watched",
	"rating":      "rating",
}

// SortAllowed reports whether sort is in the safelist.
func SortAllowed(sort string) bool {
	for _, safe := range SortSafelist {
		if sort == safe {
			return true
		}
	}
	return false
}

// sortColumn maps the filter's sort value to a column expression. It panics on
// values outside the safelist; handlers validate before calling the store.
func (f MediaFilter) sortColumn() string {
	s := f.sortValue()
	if !SortAllowed(s) {
		panic("unsafe sort parameter: " + s)
	}
	return sortColumns[strings.TrimPrefix(s, "-")]
}

// sortDirection returns "ASC" or "DESC" depending on the leading hyphen.
func (f MediaFilter) sortDirection() string {
	if strings.HasPrefix(f.sortValue(), "-") {
		return "DESC"
	}
	return "ASC"
}

func (f MediaFilter) sortValue() string {
	if f.Sort == "" {
		return DefaultSort
	}
	return f.Sort
}

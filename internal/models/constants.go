package models

// MediaType is the kind of title an entry refers to.
type MediaType string

// Media type constants. MediaTypeAll is only meaningful as a filter value.
const (
	MediaTypeAll    MediaType = "all"
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether t can be stored on an entry.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeSeries
}

// Tag is a user-assigned label from a small fixed vocabulary.
type Tag string

// Tag constants. TagAll is the "no tag filter" sentinel.
const (
	TagAll         Tag = "all"
	TagNonseasonal Tag = "nonseasonal"
	TagChristmas   Tag = "christmas"
	TagHalloween   Tag = "halloween"
)

// Tags lists every tag that can be assigned to an entry.
var Tags = []Tag{TagNonseasonal, TagChristmas, TagHalloween}

// Valid reports whether t can be assigned to an entry.
func (t Tag) Valid() bool {
	switch t {
	case TagNonseasonal, TagChristmas, TagHalloween:
		return true
	}
	return false
}

// ListKind selects one of the two lists an entry can live in.
type ListKind string

const (
	ListToWatch ListKind = "to-watch"
	ListWatched ListKind = "watched"
)

// Watched returns the watched flag entries of this list carry.
func (k ListKind) Watched() bool {
	return k == ListWatched
}

// Valid reports whether k names a known list.
func (k ListKind) Valid() bool {
	return k == ListToWatch || k == ListWatched
}

// ListKindFor returns the list an entry with the given watched flag belongs to.
func ListKindFor(watched bool) ListKind {
	if watched {
		return ListWatched
	}
	return ListToWatch
}

// DateLayout is the time layout of dateWatched values.
const DateLayout = "2006-01-02"

package models

import (
	"fmt"

	"github.com/voyagen/watchvault/internal/validator"
)

const (
	maxTitleBytes = 500
	maxRating     = 10
)

func checkDate(v *validator.Validator, key, date string) {
	v.Check(date == "" || validator.Matches(date, validator.DateRX), key, "must be a date in YYYY-MM-DD format")
}

func checkSeasons(v *validator.Validator, seasons []string) {
	for i, d := range seasons {
		checkDate(v, fmt.Sprintf("dateWatchedSeasons[%d]", i), d)
	}
}

func checkRating(v *validator.Validator, rating float64) {
	v.Check(rating >= 0 && rating <= maxRating, "rating", "must be between 0 and 10")
}

func checkTags(v *validator.Validator, tags []Tag) {
	for _, t := range tags {
		v.Check(t.Valid(), "tags", fmt.Sprintf("unknown tag %q", t))
	}
	v.Check(validator.Unique(tags), "tags", "must not contain duplicate values")
}

// ValidateCreate checks a create payload.
func ValidateCreate(v *validator.Validator, in MediaCreate) {
	v.Check(in.Title != "", "title", "must be provided")
	v.Check(len(in.Title) <= maxTitleBytes, "title", "must not be more than 500 bytes long")
	v.Check(in.MediaType.Valid(), "mediaType", "must be movie or series")
	if in.Watched {
		v.Check(in.DateWatched != "" || len(in.DateWatchedSeasons) > 0, "dateWatched", "must be provided for watched entries")
	}
	checkDate(v, "dateWatched", in.DateWatched)
	checkSeasons(v, in.DateWatchedSeasons)
	checkRating(v, in.Rating)
	checkTags(v, in.Tags)
}

// ValidateUpdate checks a partial update payload.
func ValidateUpdate(v *validator.Validator, in MediaUpdate) {
	v.Check(!in.Empty(), "body", "must set at least one field")
	if in.DateWatched != nil {
		checkDate(v, "dateWatched", *in.DateWatched)
	}
	if in.DateWatchedSeasons != nil {
		checkSeasons(v, *in.DateWatchedSeasons)
	}
	if in.Rating != nil {
		checkRating(v, *in.Rating)
	}
	if in.Tags != nil {
		checkTags(v, *in.Tags)
	}
}

// ValidateWatched checks the payload that moves an entry into the watched list.
func ValidateWatched(v *validator.Validator, in WatchedInput) {
	v.Check(in.DateWatched != "" || len(in.DateWatchedSeasons) > 0, "dateWatched", "must be provided")
	checkDate(v, "dateWatched", in.DateWatched)
	checkSeasons(v, in.DateWatchedSeasons)
	checkRating(v, in.Rating)
}

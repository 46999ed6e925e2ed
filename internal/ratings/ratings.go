// Package ratings decodes the external ratings attached to an entry and turns
// rating values of different scales into comparable numbers.
package ratings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
)

// Source identifies who produced a rating.
type Source int

const (
	SourceRottenTomatoes Source = iota
	SourceIMDb
	SourceMetacritic
	SourceUser
)

// Name returns the source name as it appears in OMDb's Ratings array.
func (s Source) Name() string {
	switch s {
	case SourceRottenTomatoes:
		return "Rotten Tomatoes"
	case SourceIMDb:
		return "Internet Movie Database"
	case SourceMetacritic:
		return "Metacritic"
	case SourceUser:
		return "userRating"
	}
	panic(fmt.Sprintf("ratings: unknown source %d", int(s)))
}

// Short returns a compact label for terminal output.
func (s Source) Short() string {
	switch s {
	case SourceRottenTomatoes:
		return "RT"
	case SourceIMDb:
		return "IMDb"
	case SourceMetacritic:
		return "MC"
	case SourceUser:
		return "Ours"
	}
	panic(fmt.Sprintf("ratings: unknown source %d", int(s)))
}

// SourceFromName maps an OMDb source name back to a Source.
func SourceFromName(name string) (Source, bool) {
	switch name {
	case "Rotten Tomatoes":
		return SourceRottenTomatoes, true
	case "Internet Movie Database":
		return SourceIMDb, true
	case "Metacritic":
		return SourceMetacritic, true
	case "userRating":
		return SourceUser, true
	}
	return 0, false
}

// Parse decodes a serialized ratings blob. An empty blob is an empty list.
func Parse(blob string) ([]models.Rating, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, nil
	}
	var out []models.Rating
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}
	return out, nil
}

// Encode serializes ratings into the blob format stored on an entry.
func Encode(rs []models.Rating) (string, error) {
	if len(rs) == 0 {
		return "", nil
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("encode ratings: %w", err)
	}
	return string(data), nil
}

// Find returns the rating from src inside blob. A malformed blob has no ratings.
func Find(blob string, src Source) (models.Rating, bool) {
	rs, err := Parse(blob)
	if err != nil {
		return models.Rating{}, false
	}
	name := src.Name()
	for _, r := range rs {
		if r.Source == name {
			return r, true
		}
	}
	return models.Rating{}, false
}

// Score finds the rating from src and converts it to a 0..100 number.
func Score(blob string, src Source) (float64, bool) {
	r, ok := Find(blob, src)
	if !ok {
		return 0, false
	}
	return Value(r.Value)
}

// Value converts a rating value to a 0..100 number. "92%" is 92, "7.8/10" is
// 78 and "76/100" is 76. "N/A" and anything unparsable report false.
func Value(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "N/A") {
		return 0, false
	}
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	num, den, ok := strings.Cut(v, "/")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d * 100, true
}

// RatioToPercentage renders "7/10" as "70%". Values that already carry a
// percent sign, and values that are not a ratio, are returned unchanged.
func RatioToPercentage(ratio string) string {
	if strings.Contains(ratio, "%") {
		return ratio
	}
	if !strings.Contains(ratio, "/") {
		return ratio
	}
	p, ok := Value(ratio)
	if !ok {
		return ratio
	}
	return strconv.FormatFloat(math.Round(p*10)/10, 'f', -1, 64) + "%"
}

// FloatToPercentage renders a 0..10 user rating as a percentage, 7.5 -> "75%".
func FloatToPercentage(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/10, 'f', -1, 64) + "%"
}
